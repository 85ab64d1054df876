package childchain

import (
	"context"
	"crypto/ecdsa"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/core/types"
	"github.com/eth2030/plasma/crypto"
	"github.com/eth2030/plasma/log"
	"github.com/eth2030/plasma/metrics"
)

// RootChain is the contract the operator commits block roots to.
type RootChain interface {
	SubmitBlock(ctx context.Context, root common.Hash) error
}

// DepositEvent is a deposit observed on the root chain. A zero Blknum
// takes the chain's next deposit block number.
type DepositEvent struct {
	Blknum    uint64
	Depositor common.Address
	Token     common.Address
	Amount    *uint256.Int
}

// ExitStartedEvent is an exit observed on the root chain.
type ExitStartedEvent struct {
	UTXOPos uint64
	Owner   common.Address
	Token   common.Address
	Amount  *uint256.Int
}

// Operator builds, signs and submits blocks on top of a ChildChain.
type Operator struct {
	mu sync.Mutex

	chain   *ChildChain
	key     *ecdsa.PrivateKey
	root    RootChain
	current *types.Block

	log     *log.Logger
	metrics *metrics.ChainMetrics
}

// NewOperator returns an operator signing with key. The key must belong to
// the chain's operator address.
func NewOperator(chain *ChildChain, key *ecdsa.PrivateKey, root RootChain) (*Operator, error) {
	if addr := crypto.PubkeyToAddress(key.PublicKey); addr != chain.Operator() {
		return nil, errors.Wrapf(ErrNotOperator, "key %s, operator %s", addr.Hex(), chain.Operator().Hex())
	}
	return &Operator{
		chain:   chain,
		key:     key,
		root:    root,
		current: types.NewBlock(nil, chain.GetCurrentBlockNum()),
		log:     chain.log.Module("operator"),
		metrics: chain.metrics,
	}, nil
}

// CurrentBlock returns a copy of the block under construction.
func (o *Operator) CurrentBlock() *types.Block {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current.Copy()
}

// ApplyTransaction validates tx against the chain and the current block and
// appends it. It returns the position of the transaction's first output.
// Transactions without inputs are rejected; deposits go through
// ApplyDeposit.
func (o *Operator) ApplyTransaction(tx *types.Transaction) (uint64, error) {
	if tx == nil {
		return 0, types.ErrNilTransaction
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if tx.IsDeposit() {
		o.metrics.TxsRejected.Inc()
		return 0, errors.Wrapf(ErrDepositTransaction, "transaction %s", tx.Hash().Hex())
	}
	if err := o.chain.ValidateTransaction(tx, o.current.SpentUTXOs()); err != nil {
		o.metrics.TxsRejected.Inc()
		return 0, err
	}
	txindex := len(o.current.TransactionSet)
	if txindex > types.MaxTxIndex {
		return 0, errors.Wrapf(types.ErrBlockFull, "block %d", o.current.Number)
	}
	if err := o.current.AddTransaction(tx.Copy()); err != nil {
		return 0, err
	}
	pos, err := types.EncodeUTXOPos(o.current.Number, uint32(txindex), 0)
	if err != nil {
		return 0, err
	}
	o.log.Debug("Transaction applied", "hash", tx.Hash(), "block", o.current.Number, "txindex", txindex)
	return pos, nil
}

// ApplyDeposit inserts the deposit block for ev.
func (o *Operator) ApplyDeposit(ev DepositEvent) (*types.Block, error) {
	blknum := ev.Blknum
	if blknum == 0 {
		blknum = o.chain.NextDepositBlock()
	}
	tx := types.NewDepositTransaction(ev.Depositor, ev.Token, ev.Amount)
	blk := types.NewBlock([]*types.Transaction{tx}, blknum)
	if err := o.chain.InsertBlock(blk); err != nil {
		return nil, err
	}
	o.metrics.Deposits.Inc()
	o.log.Info("Deposit applied", "block", blknum, "owner", ev.Depositor, "token", ev.Token)
	return blk, nil
}

// ApplyExit marks the exiting output spent and evicts the current-block
// transaction spending it, if any. Transactions after an evicted one move
// down one index, so positions returned for them earlier are stale.
func (o *Operator) ApplyExit(ev ExitStartedEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.chain.MarkUTXOSpent(ev.UTXOPos); err != nil {
		return err
	}
	o.metrics.Exits.Inc()
	o.log.Info("Exit applied", "utxoPos", ev.UTXOPos, "owner", ev.Owner)
	if o.current.SpentUTXOs().Contains(ev.UTXOPos) {
		o.evictSpending(ev.UTXOPos)
	}
	return nil
}

// evictSpending rebuilds the current block without the transactions that
// spend pos.
func (o *Operator) evictSpending(pos uint64) {
	kept := types.NewBlock(nil, o.current.Number)
	for i, tx := range o.current.TransactionSet {
		spends, err := tx.SpentUTXOs()
		if err == nil && !slices.Contains(spends, pos) {
			err = kept.AddTransaction(tx)
			if err == nil {
				continue
			}
		}
		o.metrics.TxsRejected.Inc()
		o.log.Warn("Transaction evicted", "hash", tx.Hash(), "block", o.current.Number, "txindex", i, "exited", pos, "err", err)
	}
	o.current = kept
}

// SubmitBlock signs the current block, commits its root to the root chain
// and applies it. A new empty block is started on success.
func (o *Operator) SubmitBlock(ctx context.Context) (*types.Block, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	blk := o.current
	blk.Number = o.chain.GetCurrentBlockNum()
	if err := blk.Sign(o.key); err != nil {
		return nil, err
	}
	if err := o.chain.ValidateBlock(blk); err != nil {
		return nil, err
	}
	root, err := blk.Root()
	if err != nil {
		return nil, err
	}
	if err := o.root.SubmitBlock(ctx, root); err != nil {
		return nil, errors.Wrapf(ErrRootChainSubmit, "block %d: %v", blk.Number, err)
	}
	if err := o.chain.InsertBlock(blk); err != nil {
		return nil, err
	}
	o.metrics.BlocksSubmitted.Inc()
	o.log.Info("Block submitted", "number", blk.Number, "root", root, "txs", len(blk.TransactionSet))

	o.current = types.NewBlock(nil, o.chain.GetCurrentBlockNum())
	return blk.Copy(), nil
}
