package childchain

import (
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/core/types"
	"github.com/eth2030/plasma/crypto"
	"github.com/eth2030/plasma/merkle"
)

// ExitData holds the root chain arguments for starting an exit.
type ExitData struct {
	UTXOPos uint64
	// TxBytes is the unsigned encoding of the transaction holding the output.
	TxBytes []byte
	// SignedTxBytes is the same transaction with its signatures.
	SignedTxBytes []byte
	// Proof is the Merkle inclusion proof of TxBytes in its block.
	Proof []byte
}

// ChallengeData holds the root chain arguments for challenging an exit with
// the transaction that spends the exiting output.
type ChallengeData struct {
	ExitingUTXOPos uint64
	// TxBytes is the unsigned encoding of the spending transaction.
	TxBytes    []byte
	InputIndex int
	Signature  crypto.Signature
}

// tree returns the Merkle tree of applied block blknum, building it on
// first use. Callers hold c.mu.
func (c *ChildChain) tree(blknum uint64) (*merkle.FixedMerkle, error) {
	if t, ok := c.trees[blknum]; ok {
		return t, nil
	}
	b, ok := c.blocks[blknum]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBlock, "block %d", blknum)
	}
	t, err := b.Merkle()
	if err != nil {
		return nil, err
	}
	c.trees[blknum] = t
	return t, nil
}

// ExitData builds the exit arguments for the output at utxoPos.
func (c *ChildChain) ExitData(utxoPos uint64) (*ExitData, error) {
	blknum, txindex, oindex, err := types.DecodeUTXOPos(utxoPos)
	if err != nil {
		return nil, err
	}
	if int(oindex) >= types.NumTxos {
		return nil, errors.Wrapf(ErrUnknownTransaction, "output index %d", oindex)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.transaction(blknum, txindex)
	if err != nil {
		return nil, err
	}
	tree, err := c.tree(blknum)
	if err != nil {
		return nil, err
	}
	proof, err := tree.ProofAt(int(txindex))
	if err != nil {
		return nil, err
	}
	return &ExitData{
		UTXOPos:       utxoPos,
		TxBytes:       tx.Encoded(),
		SignedTxBytes: tx.EncodedSigned(),
		Proof:         proof,
	}, nil
}

// ChallengeData builds the challenge arguments for the exit of exitingPos,
// using the transaction at spendingPos. The spending transaction must
// reference the exiting output in one of its inputs.
func (c *ChildChain) ChallengeData(exitingPos, spendingPos uint64) (*ChallengeData, error) {
	if _, err := c.GetTransaction(exitingPos); err != nil {
		return nil, errors.Wrap(err, "exiting output")
	}
	spending, err := c.GetTransaction(spendingPos)
	if err != nil {
		return nil, errors.Wrap(err, "spending transaction")
	}
	for i, in := range spending.Inputs {
		if in.Blknum == 0 {
			continue
		}
		pos, err := in.Identifier()
		if err != nil {
			return nil, err
		}
		if pos == exitingPos {
			return &ChallengeData{
				ExitingUTXOPos: exitingPos,
				TxBytes:        spending.Encoded(),
				InputIndex:     i,
				Signature:      spending.Signatures[i],
			}, nil
		}
	}
	return nil, errors.Wrapf(ErrNotSpendingInput, "position %d", exitingPos)
}
