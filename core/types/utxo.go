package types

import (
	"math"

	"github.com/pkg/errors"
)

// UTXO position weights. A position packs (blknum, txindex, oindex) into a
// single integer that the root chain contract uses as the output identifier.
const (
	BlockOffset = 1_000_000_000
	TxOffset    = 10_000
)

// MaxTxIndex bounds the transaction index so that a position decodes
// unambiguously.
const MaxTxIndex = BlockOffset/TxOffset - 1

// maxBlknum is the largest block number whose positions fit in 64 bits.
const maxBlknum = (math.MaxUint64 - MaxTxIndex*TxOffset - math.MaxUint8) / BlockOffset

// EncodeUTXOPos packs an output position. It fails if a field exceeds its
// slot or the result does not fit in 64 bits.
func EncodeUTXOPos(blknum uint64, txindex uint32, oindex uint8) (uint64, error) {
	if txindex > MaxTxIndex {
		return 0, errors.Wrapf(ErrPositionOverflow, "txindex %d", txindex)
	}
	if blknum > maxBlknum {
		return 0, errors.Wrapf(ErrPositionOverflow, "blknum %d", blknum)
	}
	return blknum*BlockOffset + uint64(txindex)*TxOffset + uint64(oindex), nil
}

// DecodeUTXOPos splits a position into its block number, transaction index
// and output index.
func DecodeUTXOPos(pos uint64) (blknum uint64, txindex uint32, oindex uint8, err error) {
	o := pos % TxOffset
	if o > math.MaxUint8 {
		return 0, 0, 0, errors.Wrapf(ErrPositionOverflow, "output index %d in position %d", o, pos)
	}
	return pos / BlockOffset, uint32((pos % BlockOffset) / TxOffset), uint8(o), nil
}
