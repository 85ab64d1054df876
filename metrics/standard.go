package metrics

// ChainMetrics are the metrics recorded by the child chain and its operator.
type ChainMetrics struct {
	// Head is the next child block number.
	Head *Gauge
	// BlocksApplied counts blocks validated and stored.
	BlocksApplied *Counter
	// BlocksBuffered counts blocks parked until their predecessor arrives.
	BlocksBuffered *Counter
	// BlocksRejected counts blocks that failed validation or arrived stale.
	BlocksRejected *Counter
	// PendingBlocks is the number of blocks currently buffered.
	PendingBlocks *Gauge
	// TxsApplied counts transactions in applied blocks.
	TxsApplied *Counter
	// TxsRejected counts operator transactions that failed validation.
	TxsRejected *Counter
	// BlockApplySeconds records block validation and apply time.
	BlockApplySeconds *Histogram
	// BlocksSubmitted counts operator roots sent to the root chain.
	BlocksSubmitted *Counter
	// Deposits counts deposit blocks built from root chain events.
	Deposits *Counter
	// Exits counts outputs marked spent by exit events.
	Exits *Counter
}

// NewChainMetrics registers the chain metrics in r.
func NewChainMetrics(r *Registry) *ChainMetrics {
	return &ChainMetrics{
		Head:              r.Gauge("chain.head"),
		BlocksApplied:     r.Counter("chain.blocks_applied"),
		BlocksBuffered:    r.Counter("chain.blocks_buffered"),
		BlocksRejected:    r.Counter("chain.blocks_rejected"),
		PendingBlocks:     r.Gauge("chain.pending_blocks"),
		TxsApplied:        r.Counter("chain.txs_applied"),
		TxsRejected:       r.Counter("operator.txs_rejected"),
		BlockApplySeconds: r.Histogram("chain.block_apply_seconds"),
		BlocksSubmitted:   r.Counter("operator.blocks_submitted"),
		Deposits:          r.Counter("operator.deposits"),
		Exits:             r.Counter("operator.exits"),
	}
}
