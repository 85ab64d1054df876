package eip712

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/plasma/core/types"
	"github.com/eth2030/plasma/crypto"
)

var (
	testContract = common.HexToAddress("0x44de0ec539b8c4a4b530c78620fe8320167f2f74")
	testOwner    = common.HexToAddress("0x6cbed15c793ce57650b9877cf6fa156fbef513c4")
)

func testTx(t *testing.T) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransaction(
		[]types.TransactionInput{types.NewTransactionInput(1000, 2, 1)},
		[]types.TransactionOutput{types.NewFungibleOutput(testOwner, common.Address{}, uint256.NewInt(100))},
		nil,
	)
	require.NoError(t, err)
	return tx
}

func TestNewSignerAmbiguous(t *testing.T) {
	d := DefaultDomain(testContract)
	_, err := NewSigner(&d, &testContract)
	require.ErrorIs(t, err, ErrAmbiguousDomain)

	byDomain, err := NewSigner(&d, nil)
	require.NoError(t, err)
	byContract, err := NewSigner(nil, &testContract)
	require.NoError(t, err)
	require.Equal(t, byDomain.Domain(), byContract.Domain())

	fallback, err := NewSigner(nil, nil)
	require.NoError(t, err)
	require.Equal(t, common.Address{}, fallback.Domain().VerifyingContract)
}

func TestHashNesting(t *testing.T) {
	s, err := NewSigner(nil, &testContract)
	require.NoError(t, err)
	tx := testTx(t)

	got, err := s.Hash(tx, common.Hash{})
	require.NoError(t, err)

	structHash, err := hashTransaction(tx, common.Hash{})
	require.NoError(t, err)
	sep := DefaultDomain(testContract).Separator()
	want := gethcrypto.Keccak256Hash(append(append([]byte{0x19, 0x01}, sep[:]...), structHash[:]...))
	require.Equal(t, want, got)
	require.NotEqual(t, tx.Hash(), got)
}

func TestHashDependsOnDomainAndMetadata(t *testing.T) {
	tx := testTx(t)
	a, err := NewSigner(nil, &testContract)
	require.NoError(t, err)
	other := common.HexToAddress("0x01")
	b, err := NewSigner(nil, &other)
	require.NoError(t, err)

	ha, err := a.Hash(tx, common.Hash{})
	require.NoError(t, err)
	hb, err := b.Hash(tx, common.Hash{})
	require.NoError(t, err)
	require.NotEqual(t, ha, hb)

	hm, err := a.Hash(tx, common.HexToHash("0x01"))
	require.NoError(t, err)
	require.NotEqual(t, ha, hm)

	tx.Spent[0] = true
	again, err := a.Hash(tx, common.Hash{})
	require.NoError(t, err)
	require.Equal(t, ha, again)
}

func TestSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := NewSigner(nil, &testContract)
	require.NoError(t, err)
	tx := testTx(t)

	require.NoError(t, s.Sign(tx, 0, common.Hash{}, key))
	signer, err := s.Signer(tx, 0, common.Hash{})
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)

	empty, err := s.Signer(tx, 1, common.Hash{})
	require.NoError(t, err)
	require.Equal(t, common.Address{}, empty)

	require.ErrorIs(t, s.Sign(tx, types.NumTxos, common.Hash{}, key), ErrInvalidSignatureIdx)
}

func TestNonFungibleOutputUnsupported(t *testing.T) {
	s, err := NewSigner(nil, &testContract)
	require.NoError(t, err)
	tx := testTx(t)
	tx.Outputs[1] = types.NewNonFungibleOutput(testOwner, testContract, []*uint256.Int{uint256.NewInt(1)})

	_, err = s.Hash(tx, common.Hash{})
	require.ErrorIs(t, err, ErrUnsupportedOutput)
}

func TestHashVector(t *testing.T) {
	s, err := NewSigner(nil, &testContract)
	require.NoError(t, err)
	h, err := s.Hash(testTx(t), common.Hash{})
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x16d06efc7e0f4ad7e78da8b29a4932c8333e8d0ffa25794911252d320fbb4271"), h)
}
