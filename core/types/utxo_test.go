package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUTXOPosRoundTrip(t *testing.T) {
	tests := []struct {
		blknum  uint64
		txindex uint32
		oindex  uint8
		pos     uint64
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1_000_000_000},
		{1000, 5, 3, 1000*BlockOffset + 5*TxOffset + 3},
		{7, MaxTxIndex, 255, 7*BlockOffset + MaxTxIndex*TxOffset + 255},
	}
	for _, tt := range tests {
		pos, err := EncodeUTXOPos(tt.blknum, tt.txindex, tt.oindex)
		require.NoError(t, err)
		require.Equal(t, tt.pos, pos)

		blknum, txindex, oindex, err := DecodeUTXOPos(pos)
		require.NoError(t, err)
		require.Equal(t, tt.blknum, blknum)
		require.Equal(t, tt.txindex, txindex)
		require.Equal(t, tt.oindex, oindex)
	}
}

func TestUTXOPosOverflow(t *testing.T) {
	_, err := EncodeUTXOPos(1, MaxTxIndex+1, 0)
	require.ErrorIs(t, err, ErrPositionOverflow)

	_, err = EncodeUTXOPos(maxBlknum+1, 0, 0)
	require.ErrorIs(t, err, ErrPositionOverflow)

	_, err = EncodeUTXOPos(maxBlknum, MaxTxIndex, 255)
	require.NoError(t, err)

	_, _, _, err = DecodeUTXOPos(1*BlockOffset + 256)
	require.ErrorIs(t, err, ErrPositionOverflow)
}

func TestInputFromUTXOPos(t *testing.T) {
	in, err := InputFromUTXOPos(2000*BlockOffset + 3*TxOffset + 1)
	require.NoError(t, err)
	require.Equal(t, NewTransactionInput(2000, 3, 1), in)
	require.False(t, in.IsEmpty())
	require.True(t, DefaultInput.IsEmpty())

	id, err := in.Identifier()
	require.NoError(t, err)
	require.Equal(t, uint64(2000*BlockOffset+3*TxOffset+1), id)
}
