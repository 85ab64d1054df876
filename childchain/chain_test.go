package childchain

import (
	"crypto/ecdsa"
	"io"
	"log/slog"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/plasma/core/types"
	"github.com/eth2030/plasma/crypto"
	"github.com/eth2030/plasma/log"
	"github.com/eth2030/plasma/merkle"
	"github.com/eth2030/plasma/metrics"
)

var testToken = common.HexToAddress("0x0000000000000000000000000000000000000e20")

type account struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newAccount(t *testing.T) account {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return account{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

type testEnv struct {
	chain    *ChildChain
	operator account
	alice    account
	bob      account
	registry *metrics.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		operator: newAccount(t),
		alice:    newAccount(t),
		bob:      newAccount(t),
		registry: metrics.NewRegistry(),
	}
	env.chain = New(Config{
		Operator: env.operator.addr,
		Signers:  crypto.NewSignerCache(64),
		Logger:   log.NewWithHandler(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  metrics.NewChainMetrics(env.registry),
	})
	return env
}

// deposit applies a deposit block of amount token to owner and returns the
// position of its output.
func (env *testEnv) deposit(t *testing.T, owner common.Address, token common.Address, amount uint64) uint64 {
	t.Helper()
	n := env.chain.NextDepositBlock()
	tx := types.NewDepositTransaction(owner, token, uint256.NewInt(amount))
	require.NoError(t, env.chain.InsertBlock(types.NewBlock([]*types.Transaction{tx}, n)))
	pos, err := types.EncodeUTXOPos(n, 0, 0)
	require.NoError(t, err)
	return pos
}

// spend builds a transaction spending pos, signed by from, paying outputs.
func spend(t *testing.T, from account, positions []uint64, outputs ...types.TransactionOutput) *types.Transaction {
	t.Helper()
	inputs := make([]types.TransactionInput, len(positions))
	for i, pos := range positions {
		in, err := types.InputFromUTXOPos(pos)
		require.NoError(t, err)
		inputs[i] = in
	}
	tx, err := types.NewTransaction(inputs, outputs, nil)
	require.NoError(t, err)
	for i := range positions {
		require.NoError(t, tx.Sign(i, from.key))
	}
	return tx
}

func pay(owner common.Address, amount uint64) types.TransactionOutput {
	return types.NewFungibleOutput(owner, common.Address{}, uint256.NewInt(amount))
}

// childBlock returns an operator-signed block.
func (env *testEnv) childBlock(t *testing.T, number uint64, txs ...*types.Transaction) *types.Block {
	t.Helper()
	b := types.NewBlock(txs, number)
	require.NoError(t, b.Sign(env.operator.key))
	return b
}

func TestOutOfOrderChildBlocks(t *testing.T) {
	env := newTestEnv(t)

	require.False(t, env.chain.AddBlock(env.childBlock(t, 2000)))
	require.Equal(t, 1, env.chain.PendingBlocks())
	require.EqualValues(t, 1000, env.chain.GetCurrentBlockNum())

	require.True(t, env.chain.AddBlock(env.childBlock(t, 1000)))
	require.EqualValues(t, 3000, env.chain.GetCurrentBlockNum())
	require.EqualValues(t, 2001, env.chain.NextDepositBlock())
	require.Zero(t, env.chain.PendingBlocks())

	for _, n := range []uint64{1000, 2000} {
		_, err := env.chain.GetBlock(n)
		require.NoError(t, err)
	}
	require.EqualValues(t, 2, env.registry.Counter("chain.blocks_applied").Value())
	require.EqualValues(t, 1, env.registry.Counter("chain.blocks_buffered").Value())
	require.EqualValues(t, 0, env.registry.Gauge("chain.pending_blocks").Value())
	require.EqualValues(t, 3000, env.registry.Gauge("chain.head").Value())
}

func TestBufferedChainFlushesDepthFirst(t *testing.T) {
	env := newTestEnv(t)
	dep := func(n uint64) *types.Block {
		return types.NewBlock([]*types.Transaction{types.NewDepositTransaction(env.alice.addr, common.Address{}, uint256.NewInt(n))}, n)
	}

	err := env.chain.InsertBlock(env.childBlock(t, 3000))
	require.ErrorIs(t, err, ErrBlockBuffered)
	require.ErrorIs(t, env.chain.InsertBlock(env.childBlock(t, 2000)), ErrBlockBuffered)
	require.ErrorIs(t, env.chain.InsertBlock(dep(1002)), ErrBlockBuffered)
	require.ErrorIs(t, env.chain.InsertBlock(dep(1001)), ErrBlockBuffered)
	require.ErrorIs(t, env.chain.InsertBlock(dep(2)), ErrBlockBuffered)
	require.Equal(t, 5, env.chain.PendingBlocks())

	require.NoError(t, env.chain.InsertBlock(dep(1)))
	require.EqualValues(t, 3, env.chain.NextDepositBlock())
	require.Equal(t, 4, env.chain.PendingBlocks())

	// 1000 releases 1001 (then 1002) before 2000, then 2000 releases 3000.
	require.NoError(t, env.chain.InsertBlock(env.childBlock(t, 1000)))
	for _, n := range []uint64{1001, 1002, 2000, 3000} {
		_, err := env.chain.GetBlock(n)
		require.NoError(t, err, "block %d", n)
	}
	require.EqualValues(t, 4000, env.chain.GetCurrentBlockNum())
	require.EqualValues(t, 3001, env.chain.NextDepositBlock())
	require.Zero(t, env.chain.PendingBlocks())
}

func TestStaleAndKnownBlocks(t *testing.T) {
	env := newTestEnv(t)
	env.deposit(t, env.alice.addr, common.Address{}, 10)
	require.True(t, env.chain.AddBlock(env.childBlock(t, 1000)))

	require.ErrorIs(t, env.chain.InsertBlock(env.childBlock(t, 1000)), ErrKnownBlock)
	late := types.NewBlock([]*types.Transaction{types.NewDepositTransaction(env.alice.addr, common.Address{}, uint256.NewInt(1))}, 2)
	require.ErrorIs(t, env.chain.InsertBlock(late), ErrStaleBlock)
	require.False(t, env.chain.AddBlock(nil))
	require.EqualValues(t, 2, env.registry.Counter("chain.blocks_rejected").Value())
}

func TestBlockSignatureChecks(t *testing.T) {
	env := newTestEnv(t)

	unsigned := types.NewBlock(nil, 1000)
	require.ErrorIs(t, env.chain.InsertBlock(unsigned), ErrInvalidBlockSignature)

	forged := types.NewBlock(nil, 1000)
	require.NoError(t, forged.Sign(env.alice.key))
	require.ErrorIs(t, env.chain.InsertBlock(forged), ErrInvalidBlockSignature)
	require.False(t, env.chain.AddBlock(forged))

	// Deposit blocks carry no operator signature.
	env.deposit(t, env.alice.addr, common.Address{}, 1)
	require.True(t, env.chain.AddBlock(env.childBlock(t, 1000)))
}

func TestDoubleSpendAcrossBlocks(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)

	first := spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 100))
	require.True(t, env.chain.AddBlock(env.childBlock(t, 1000, first)))

	second := spend(t, env.alice, []uint64{pos}, pay(env.alice.addr, 100))
	err := env.chain.InsertBlock(env.childBlock(t, 2000, second))
	require.ErrorIs(t, err, ErrTxAlreadySpent)
	require.EqualValues(t, 2000, env.chain.GetCurrentBlockNum(), "rejected block leaves the head untouched")

	spentTx, err := env.chain.GetTransaction(pos)
	require.NoError(t, err)
	require.True(t, spentTx.Spent[0])
}

func TestDoubleSpendWithinBlock(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)

	a := spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 100))
	b := spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 50))
	require.ErrorIs(t, env.chain.InsertBlock(env.childBlock(t, 1000, a, b)), ErrTxAlreadySpent)

	twice := spend(t, env.alice, []uint64{pos, pos}, pay(env.bob.addr, 200))
	require.ErrorIs(t, env.chain.ValidateTransaction(twice, nil), ErrTxAlreadySpent)

	overlay := mapset.NewThreadUnsafeSet(pos)
	require.ErrorIs(t, env.chain.ValidateTransaction(a, overlay), ErrTxAlreadySpent)
	require.NoError(t, env.chain.ValidateTransaction(a, nil))
}

func TestAmountConservation(t *testing.T) {
	env := newTestEnv(t)
	eth := env.deposit(t, env.alice.addr, common.Address{}, 100)
	erc := env.deposit(t, env.alice.addr, testToken, 40)

	tests := []struct {
		name    string
		inputs  []uint64
		outputs []types.TransactionOutput
		err     error
	}{
		{"equal", []uint64{eth}, []types.TransactionOutput{pay(env.bob.addr, 60), pay(env.alice.addr, 40)}, nil},
		{"fee", []uint64{eth}, []types.TransactionOutput{pay(env.bob.addr, 99)}, nil},
		{"exceeds", []uint64{eth}, []types.TransactionOutput{pay(env.bob.addr, 101)}, ErrTxAmountMismatch},
		{"split exceeds", []uint64{eth}, []types.TransactionOutput{pay(env.bob.addr, 60), pay(env.bob.addr, 41)}, ErrTxAmountMismatch},
		{"two tokens", []uint64{eth, erc}, []types.TransactionOutput{
			pay(env.bob.addr, 100),
			types.NewFungibleOutput(env.bob.addr, testToken, uint256.NewInt(40)),
		}, nil},
		{"wrong token", []uint64{eth}, []types.TransactionOutput{
			types.NewFungibleOutput(env.bob.addr, testToken, uint256.NewInt(1)),
		}, ErrTxAmountMismatch},
	}
	for _, tt := range tests {
		tx := spend(t, env.alice, tt.inputs, tt.outputs...)
		err := env.chain.ValidateTransaction(tx, nil)
		if tt.err == nil {
			require.NoError(t, err, tt.name)
		} else {
			require.ErrorIs(t, err, tt.err, tt.name)
		}
	}
}

func TestNonFungibleConservation(t *testing.T) {
	env := newTestEnv(t)
	ids := []*uint256.Int{uint256.NewInt(7), uint256.NewInt(9)}
	deposit, err := types.NewTransaction(nil, []types.TransactionOutput{types.NewNonFungibleOutput(env.alice.addr, testToken, ids)}, nil)
	require.NoError(t, err)
	require.NoError(t, env.chain.InsertBlock(types.NewBlock([]*types.Transaction{deposit}, 1)))
	pos, err := types.EncodeUTXOPos(1, 0, 0)
	require.NoError(t, err)

	split := spend(t, env.alice, []uint64{pos},
		types.NewNonFungibleOutput(env.bob.addr, testToken, ids[:1]),
		types.NewNonFungibleOutput(env.alice.addr, testToken, ids[1:]),
	)
	require.NoError(t, env.chain.ValidateTransaction(split, nil))

	forged := spend(t, env.alice, []uint64{pos},
		types.NewNonFungibleOutput(env.bob.addr, testToken, []*uint256.Int{uint256.NewInt(8)}),
	)
	require.ErrorIs(t, env.chain.ValidateTransaction(forged, nil), ErrTxAmountMismatch)

	duplicated := spend(t, env.alice, []uint64{pos},
		types.NewNonFungibleOutput(env.bob.addr, testToken, ids[:1]),
		types.NewNonFungibleOutput(env.alice.addr, testToken, ids[:1]),
	)
	require.ErrorIs(t, env.chain.ValidateTransaction(duplicated, nil), ErrTxAmountMismatch)
}

func TestTransactionSignatureChecks(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)

	byBob := spend(t, env.bob, []uint64{pos}, pay(env.bob.addr, 100))
	require.ErrorIs(t, env.chain.ValidateTransaction(byBob, nil), ErrInvalidTxSignature)

	unsigned := spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 100))
	unsigned.Signatures[0] = crypto.NullSignature
	require.ErrorIs(t, env.chain.ValidateTransaction(unsigned, nil), ErrInvalidTxSignature)

	ok := spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 100))
	require.NoError(t, env.chain.ValidateTransaction(ok, nil))
	// The block check repeats the recovery and hits the cache.
	require.NoError(t, env.chain.ValidateTransaction(ok, nil))
	require.Positive(t, env.chain.signers.Stats().Hits)
}

func TestUnknownInputs(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)

	missingBlock := spend(t, env.alice, []uint64{5 * types.BlockOffset}, pay(env.bob.addr, 1))
	require.ErrorIs(t, env.chain.ValidateTransaction(missingBlock, nil), ErrUnknownBlock)

	missingTx := spend(t, env.alice, []uint64{pos + types.TxOffset}, pay(env.bob.addr, 1))
	require.ErrorIs(t, env.chain.ValidateTransaction(missingTx, nil), ErrUnknownTransaction)

	_, err := env.chain.GetBlock(1000)
	require.ErrorIs(t, err, ErrUnknownBlock)
	_, err = env.chain.GetTransaction(7 * types.BlockOffset)
	require.ErrorIs(t, err, ErrUnknownBlock)
}

func TestMarkUTXOSpent(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)
	require.NoError(t, env.chain.MarkUTXOSpent(pos))

	tx := spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 100))
	require.ErrorIs(t, env.chain.ValidateTransaction(tx, nil), ErrTxAlreadySpent)

	require.ErrorIs(t, env.chain.MarkUTXOSpent(pos+7), ErrUnknownTransaction)
}

func TestGetTransactionReturnsCopy(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)

	tx, err := env.chain.GetTransaction(pos)
	require.NoError(t, err)
	tx.Spent[0] = true

	again, err := env.chain.GetTransaction(pos)
	require.NoError(t, err)
	require.False(t, again.Spent[0])
}

func TestExitAndChallengeData(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)
	other := env.deposit(t, env.bob.addr, common.Address{}, 5)

	filler := spend(t, env.bob, []uint64{other}, pay(env.bob.addr, 5))
	transfer := spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 100))
	require.True(t, env.chain.AddBlock(env.childBlock(t, 1000, filler, transfer)))

	transferPos, err := types.EncodeUTXOPos(1000, 1, 0)
	require.NoError(t, err)
	data, err := env.chain.ExitData(transferPos)
	require.NoError(t, err)
	require.Equal(t, transfer.Encoded(), data.TxBytes)
	require.Equal(t, transfer.EncodedSigned(), data.SignedTxBytes)
	require.Len(t, data.Proof, types.BlockMerkleDepth*common.HashLength)

	blk, err := env.chain.GetBlock(1000)
	require.NoError(t, err)
	root, err := blk.Root()
	require.NoError(t, err)
	require.True(t, merkle.VerifyProof(root, transfer.Hash(), 1, data.Proof))

	challenge, err := env.chain.ChallengeData(pos, transferPos)
	require.NoError(t, err)
	require.Equal(t, 0, challenge.InputIndex)
	require.Equal(t, transfer.Signatures[0], challenge.Signature)
	require.Equal(t, transfer.Encoded(), challenge.TxBytes)

	fillerPos, err := types.EncodeUTXOPos(1000, 0, 0)
	require.NoError(t, err)
	_, err = env.chain.ChallengeData(pos, fillerPos)
	require.ErrorIs(t, err, ErrNotSpendingInput)

	_, err = env.chain.ExitData(2000 * types.BlockOffset)
	require.ErrorIs(t, err, ErrUnknownBlock)
}

func TestStaleBufferedBlocksDropped(t *testing.T) {
	env := newTestEnv(t)
	dep := types.NewBlock([]*types.Transaction{types.NewDepositTransaction(env.alice.addr, common.Address{}, uint256.NewInt(1))}, 2)
	require.ErrorIs(t, env.chain.InsertBlock(dep), ErrBlockBuffered)
	require.Equal(t, 1, env.chain.PendingBlocks())

	// Deposit 1 can no longer arrive once 1000 moves the deposit slot to 1001.
	require.NoError(t, env.chain.InsertBlock(env.childBlock(t, 1000)))
	require.EqualValues(t, 1001, env.chain.NextDepositBlock())
	require.Zero(t, env.chain.PendingBlocks())
	require.EqualValues(t, 0, env.registry.Gauge("chain.pending_blocks").Value())
	require.EqualValues(t, 1, env.registry.Counter("chain.blocks_rejected").Value())
	_, err := env.chain.GetBlock(2)
	require.ErrorIs(t, err, ErrUnknownBlock)
}

func TestGetBlockReturnsCopy(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)

	blk, err := env.chain.GetBlock(1)
	require.NoError(t, err)
	blk.TransactionSet[0].Spent[0] = true
	blk.Number = 9

	again, err := env.chain.GetBlock(1)
	require.NoError(t, err)
	require.False(t, again.TransactionSet[0].Spent[0])
	require.EqualValues(t, 1, again.Number)
	require.NoError(t, env.chain.ValidateTransaction(spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 100)), nil))
}

func TestExitDataReusesBlockTree(t *testing.T) {
	env := newTestEnv(t)
	pos := env.deposit(t, env.alice.addr, common.Address{}, 100)
	transfer := spend(t, env.alice, []uint64{pos}, pay(env.bob.addr, 100))
	require.True(t, env.chain.AddBlock(env.childBlock(t, 1000, transfer)))
	transferPos, err := types.EncodeUTXOPos(1000, 0, 0)
	require.NoError(t, err)

	first, err := env.chain.ExitData(transferPos)
	require.NoError(t, err)
	require.Len(t, env.chain.trees, 1)
	tree := env.chain.trees[1000]
	require.NotNil(t, tree)

	second, err := env.chain.ExitData(transferPos)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Same(t, tree, env.chain.trees[1000])

	// Spending an output does not change the block's leaves.
	require.NoError(t, env.chain.MarkUTXOSpent(transferPos))
	blk, err := env.chain.GetBlock(1000)
	require.NoError(t, err)
	root, err := blk.Root()
	require.NoError(t, err)
	require.Equal(t, root, tree.Root())
}
