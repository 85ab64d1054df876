// Package childchain holds the child chain state machine: it orders
// incoming blocks, validates their transactions against the UTXO set and
// tracks which outputs are spent.
package childchain

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/core/types"
	"github.com/eth2030/plasma/crypto"
	"github.com/eth2030/plasma/log"
	"github.com/eth2030/plasma/merkle"
	"github.com/eth2030/plasma/metrics"
)

// DefaultChildBlockInterval is the spacing between operator block numbers.
// The numbers in between are reserved for deposit blocks.
const DefaultChildBlockInterval = 1000

// Config configures a ChildChain. Zero fields take defaults.
type Config struct {
	// Operator is the only address allowed to sign non-deposit blocks.
	Operator common.Address
	// ChildBlockInterval is the spacing between operator block numbers.
	ChildBlockInterval uint64
	// Signers caches signature recovery. Nil disables caching.
	Signers *crypto.SignerCache
	Logger  *log.Logger
	// Metrics receives chain metrics. Nil gives the chain a private registry.
	Metrics *metrics.ChainMetrics
}

// ChildChain is the in-memory chain view. All methods are safe for
// concurrent use; mutations are serialized by a single mutex.
type ChildChain struct {
	mu sync.Mutex

	operator common.Address
	interval uint64

	blocks      map[uint64]*types.Block
	parentQueue map[uint64][]*types.Block
	// trees caches the Merkle tree of applied blocks asked for exit data.
	trees map[uint64]*merkle.FixedMerkle

	nextChildBlock   uint64
	nextDepositBlock uint64

	signers *crypto.SignerCache
	log     *log.Logger
	metrics *metrics.ChainMetrics
}

// New returns an empty chain expecting deposit block 1 or operator block
// ChildBlockInterval next.
func New(cfg Config) *ChildChain {
	if cfg.ChildBlockInterval == 0 {
		cfg.ChildBlockInterval = DefaultChildBlockInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewChainMetrics(metrics.NewRegistry())
	}
	c := &ChildChain{
		operator:         cfg.Operator,
		interval:         cfg.ChildBlockInterval,
		blocks:           make(map[uint64]*types.Block),
		parentQueue:      make(map[uint64][]*types.Block),
		trees:            make(map[uint64]*merkle.FixedMerkle),
		nextChildBlock:   cfg.ChildBlockInterval,
		nextDepositBlock: 1,
		signers:          cfg.Signers,
		log:              cfg.Logger.Module("childchain"),
		metrics:          cfg.Metrics,
	}
	c.metrics.Head.Set(int64(c.nextChildBlock))
	return c
}

// Operator returns the operator address.
func (c *ChildChain) Operator() common.Address { return c.operator }

// ChildBlockInterval returns the spacing between operator block numbers.
func (c *ChildChain) ChildBlockInterval() uint64 { return c.interval }

// AddBlock inserts b and reports whether it was applied. Rejected and
// buffered blocks return false; the reason is logged.
func (c *ChildChain) AddBlock(b *types.Block) bool {
	if b == nil {
		return false
	}
	if err := c.InsertBlock(b); err != nil {
		if errors.Is(err, ErrBlockBuffered) {
			c.log.Debug("Block buffered", "number", b.Number)
		} else {
			c.log.Warn("Block rejected", "number", b.Number, "err", err)
		}
		return false
	}
	return true
}

// InsertBlock applies b if it fills the next operator or deposit slot,
// buffers it if its predecessor has not arrived, and rejects it otherwise.
// Buffered successors are applied as soon as their predecessor is.
func (c *ChildChain) InsertBlock(b *types.Block) error {
	if b == nil {
		return errors.Wrap(ErrUnknownBlock, "nil block")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.insertBlock(b); err != nil {
		return err
	}
	c.pruneQueue()
	return nil
}

func (c *ChildChain) insertBlock(b *types.Block) error {
	n := b.Number
	switch {
	case n == c.nextChildBlock || n == c.nextDepositBlock:
		if err := c.validateBlock(b); err != nil {
			c.metrics.BlocksRejected.Inc()
			return errors.Wrapf(err, "block %d", n)
		}
		c.applyBlock(b)
		c.flush(n)
		return nil

	case n > c.nextDepositBlock:
		parent := c.predecessor(n)
		c.parentQueue[parent] = append(c.parentQueue[parent], b)
		c.metrics.BlocksBuffered.Inc()
		c.metrics.PendingBlocks.Add(1)
		return errors.Wrapf(ErrBlockBuffered, "block %d waits for %d", n, parent)
	}

	c.metrics.BlocksRejected.Inc()
	if _, ok := c.blocks[n]; ok {
		return errors.Wrapf(ErrKnownBlock, "block %d", n)
	}
	return errors.Wrapf(ErrStaleBlock, "block %d, next deposit %d", n, c.nextDepositBlock)
}

// predecessor is the block that must be applied before n can be.
func (c *ChildChain) predecessor(n uint64) uint64 {
	if n%c.interval == 0 {
		return n - c.interval
	}
	return n - 1
}

// flush replays blocks waiting on parent in ascending order. Each applied
// block flushes its own successors before the next sibling is tried.
func (c *ChildChain) flush(parent uint64) {
	queued, ok := c.parentQueue[parent]
	if !ok {
		return
	}
	delete(c.parentQueue, parent)
	c.metrics.PendingBlocks.Add(-int64(len(queued)))

	sort.SliceStable(queued, func(i, j int) bool { return queued[i].Number < queued[j].Number })
	for _, b := range queued {
		if err := c.insertBlock(b); err != nil {
			c.log.Warn("Buffered block dropped", "number", b.Number, "parent", parent, "err", err)
		}
	}
}

// pruneQueue drops buffered blocks whose predecessor is below the next
// deposit slot. Such a predecessor is either applied or stale, so nothing
// will ever flush them.
func (c *ChildChain) pruneQueue() {
	for parent, queued := range c.parentQueue {
		if parent >= c.nextDepositBlock {
			continue
		}
		delete(c.parentQueue, parent)
		c.metrics.PendingBlocks.Add(-int64(len(queued)))
		c.metrics.BlocksRejected.Add(int64(len(queued)))
		for _, b := range queued {
			c.log.Warn("Buffered block dropped", "number", b.Number, "parent", parent, "err", ErrStaleBlock)
		}
	}
}

// ValidateBlock runs the checks InsertBlock would run, without applying b.
func (c *ChildChain) ValidateBlock(b *types.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateBlock(b)
}

func (c *ChildChain) validateBlock(b *types.Block) error {
	if !b.IsDepositBlock() {
		if b.Sig.IsNull() {
			return errors.Wrap(ErrInvalidBlockSignature, "unsigned")
		}
		signer, err := c.signers.Recover(b.Hash(), b.Sig)
		if err != nil {
			return errors.Wrap(ErrInvalidBlockSignature, err.Error())
		}
		if signer != c.operator {
			return errors.Wrapf(ErrInvalidBlockSignature, "signed by %s", signer.Hex())
		}
	}
	tempSpent := mapset.NewThreadUnsafeSet[uint64]()
	for i, tx := range b.TransactionSet {
		if tx == nil {
			return errors.Wrapf(types.ErrNilTransaction, "index %d", i)
		}
		if err := c.validateTransaction(tx, tempSpent); err != nil {
			return errors.Wrapf(err, "transaction %d", i)
		}
		positions, err := tx.SpentUTXOs()
		if err != nil {
			return err
		}
		tempSpent.Append(positions...)
	}
	return nil
}

// ValidateTransaction checks tx against the applied chain and the outputs
// in tempSpent, which the caller uses to track spends not yet applied. A
// nil tempSpent is treated as empty.
func (c *ChildChain) ValidateTransaction(tx *types.Transaction, tempSpent mapset.Set[uint64]) error {
	if tx == nil {
		return types.ErrNilTransaction
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateTransaction(tx, tempSpent)
}

// value is the total an input set makes available per token.
type value struct {
	amounts map[common.Address]*uint256.Int
	ids     map[common.Address]mapset.Set[uint256.Int]
}

func newValue() *value {
	return &value{
		amounts: make(map[common.Address]*uint256.Int),
		ids:     make(map[common.Address]mapset.Set[uint256.Int]),
	}
}

func (v *value) add(out *types.TransactionOutput) error {
	if !out.IsFungible() {
		set, ok := v.ids[out.Token]
		if !ok {
			set = mapset.NewThreadUnsafeSet[uint256.Int]()
			v.ids[out.Token] = set
		}
		for _, id := range out.TokenIDs {
			if !set.Add(id) {
				return errors.Wrapf(ErrTxAmountMismatch, "token %s id %s counted twice", out.Token.Hex(), id.Dec())
			}
		}
		return nil
	}
	sum, ok := v.amounts[out.Token]
	if !ok {
		sum = new(uint256.Int)
		v.amounts[out.Token] = sum
	}
	if _, overflow := sum.AddOverflow(sum, &out.Amount); overflow {
		return errors.Wrapf(ErrTxAmountMismatch, "token %s amount overflows", out.Token.Hex())
	}
	return nil
}

// covers reports whether v holds at least everything in spend.
func (v *value) covers(spend *value) error {
	for token, amount := range spend.amounts {
		have, ok := v.amounts[token]
		if !ok {
			have = new(uint256.Int)
		}
		if have.Lt(amount) {
			return errors.Wrapf(ErrTxAmountMismatch, "token %s: inputs %s, outputs %s", token.Hex(), have.Dec(), amount.Dec())
		}
	}
	for token, ids := range spend.ids {
		have, ok := v.ids[token]
		if !ok || !ids.IsSubset(have) {
			return errors.Wrapf(ErrTxAmountMismatch, "token %s: output ids not held by inputs", token.Hex())
		}
	}
	return nil
}

func (c *ChildChain) validateTransaction(tx *types.Transaction, tempSpent mapset.Set[uint64]) error {
	hash := tx.Hash()
	in := newValue()
	seen := mapset.NewThreadUnsafeSet[uint64]()

	for i, input := range tx.Inputs {
		if input.Blknum == 0 {
			continue
		}
		pos, err := input.Identifier()
		if err != nil {
			return err
		}
		prev, err := c.transaction(input.Blknum, input.Txindex)
		if err != nil {
			return errors.Wrapf(err, "input %d", i)
		}
		if int(input.Oindex) >= types.NumTxos {
			return errors.Wrapf(ErrUnknownTransaction, "input %d: output index %d", i, input.Oindex)
		}
		prevOut := &prev.Outputs[input.Oindex]

		sig := tx.Signatures[i]
		if sig.IsNull() {
			return errors.Wrapf(ErrInvalidTxSignature, "input %d unsigned", i)
		}
		signer, err := c.signers.Recover(hash, sig)
		if err != nil {
			return errors.Wrapf(ErrInvalidTxSignature, "input %d: %v", i, err)
		}
		if signer != prevOut.Owner {
			return errors.Wrapf(ErrInvalidTxSignature, "input %d signed by %s, owner %s", i, signer.Hex(), prevOut.Owner.Hex())
		}

		if prev.Spent[input.Oindex] || (tempSpent != nil && tempSpent.Contains(pos)) || !seen.Add(pos) {
			return errors.Wrapf(ErrTxAlreadySpent, "input %d at position %d", i, pos)
		}
		if err := in.add(prevOut); err != nil {
			return err
		}
	}

	if tx.IsDeposit() {
		return nil
	}
	out := newValue()
	for i := range tx.Outputs {
		if err := out.add(&tx.Outputs[i]); err != nil {
			return err
		}
	}
	return in.covers(out)
}

func (c *ChildChain) applyBlock(b *types.Block) {
	timer := metrics.NewTimer(c.metrics.BlockApplySeconds)
	for _, tx := range b.TransactionSet {
		c.applyTransaction(tx)
	}
	c.blocks[b.Number] = b

	if b.Number == c.nextChildBlock {
		c.nextDepositBlock = b.Number + 1
		c.nextChildBlock += c.interval
	} else {
		c.nextDepositBlock++
	}
	timer.Stop()

	c.metrics.BlocksApplied.Inc()
	c.metrics.TxsApplied.Add(int64(len(b.TransactionSet)))
	c.metrics.Head.Set(int64(c.nextChildBlock))
	c.log.Info("Block applied", "number", b.Number, "txs", len(b.TransactionSet),
		"deposit", b.IsDepositBlock(), "nextChild", c.nextChildBlock, "nextDeposit", c.nextDepositBlock)
}

// applyTransaction marks the outputs tx spends. It must run once per tx.
func (c *ChildChain) applyTransaction(tx *types.Transaction) {
	for _, input := range tx.Inputs {
		if input.Blknum == 0 {
			continue
		}
		prev, err := c.transaction(input.Blknum, input.Txindex)
		if err != nil {
			continue
		}
		prev.Spent[input.Oindex] = true
	}
}

// transaction returns the stored transaction, not a copy.
func (c *ChildChain) transaction(blknum uint64, txindex uint32) (*types.Transaction, error) {
	b, ok := c.blocks[blknum]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBlock, "block %d", blknum)
	}
	if int(txindex) >= len(b.TransactionSet) {
		return nil, errors.Wrapf(ErrUnknownTransaction, "block %d has %d transactions, want index %d", blknum, len(b.TransactionSet), txindex)
	}
	return b.TransactionSet[txindex], nil
}

// GetBlock returns a copy of the applied block n. Spent flags in the copy
// reflect the chain at the time of the call.
func (c *ChildChain) GetBlock(n uint64) (*types.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.blocks[n]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBlock, "block %d", n)
	}
	return b.Copy(), nil
}

// GetTransaction returns a copy of the transaction holding the output at
// utxoPos. The output index of the position is ignored.
func (c *ChildChain) GetTransaction(utxoPos uint64) (*types.Transaction, error) {
	blknum, txindex, _, err := types.DecodeUTXOPos(utxoPos)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, err := c.transaction(blknum, txindex)
	if err != nil {
		return nil, err
	}
	return tx.Copy(), nil
}

// GetCurrentBlockNum returns the number the next operator block will take.
func (c *ChildChain) GetCurrentBlockNum() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextChildBlock
}

// NextDepositBlock returns the number the next deposit block will take.
func (c *ChildChain) NextDepositBlock() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextDepositBlock
}

// PendingBlocks returns the number of buffered blocks.
func (c *ChildChain) PendingBlocks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.parentQueue {
		n += len(q)
	}
	return n
}

// MarkUTXOSpent marks the output at utxoPos spent, as when it exits to the
// root chain.
func (c *ChildChain) MarkUTXOSpent(utxoPos uint64) error {
	blknum, txindex, oindex, err := types.DecodeUTXOPos(utxoPos)
	if err != nil {
		return err
	}
	if int(oindex) >= types.NumTxos {
		return errors.Wrapf(ErrUnknownTransaction, "output index %d", oindex)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, err := c.transaction(blknum, txindex)
	if err != nil {
		return err
	}
	tx.Spent[oindex] = true
	return nil
}
