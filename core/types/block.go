package types

import (
	"crypto/ecdsa"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/crypto"
	"github.com/eth2030/plasma/merkle"
)

// BlockMerkleDepth is the depth of the transaction tree committed to by a
// block root. It caps a block at 2^16 transactions.
const BlockMerkleDepth = 16

// MaxBlockTransactions is the largest transaction set a block can commit to.
const MaxBlockTransactions = 1 << BlockMerkleDepth

var ErrBlockFull = errors.New("types: block is full")

// Block is an ordered transaction set signed by the operator. Number is
// assigned by the chain and is not part of the encoding.
//
// The block hash covers the unsigned encoding [transactionSet]; the signed
// encoding is [transactionSet, sig].
type Block struct {
	TransactionSet []*Transaction
	Sig            crypto.Signature
	Number         uint64 `rlp:"-"`

	spent mapset.Set[uint64]
}

type unsignedBlock struct {
	TransactionSet []*Transaction
}

// NewBlock returns an unsigned block holding txs.
func NewBlock(txs []*Transaction, number uint64) *Block {
	return &Block{TransactionSet: txs, Number: number}
}

// DecodeBlock decodes the signed encoding and tags the result with number.
func DecodeBlock(b []byte, number uint64) (*Block, error) {
	blk := new(Block)
	if err := rlp.DecodeBytes(b, blk); err != nil {
		return nil, errors.Wrap(err, "types: decode block")
	}
	for i, tx := range blk.TransactionSet {
		if tx == nil {
			return nil, errors.Wrapf(ErrNilTransaction, "index %d", i)
		}
	}
	blk.Number = number
	return blk, nil
}

// Encoded returns the unsigned encoding.
func (b *Block) Encoded() []byte {
	return mustEncode(&unsignedBlock{TransactionSet: b.txs()})
}

// EncodedSigned returns the signed encoding.
func (b *Block) EncodedSigned() []byte {
	return mustEncode(&Block{TransactionSet: b.txs(), Sig: b.Sig})
}

// Hash returns keccak256 of the unsigned encoding. The operator signs it.
func (b *Block) Hash() common.Hash {
	return crypto.Keccak256Hash(b.Encoded())
}

// Sign signs the block hash with key.
func (b *Block) Sign(key *ecdsa.PrivateKey) error {
	sig, err := crypto.Sign(b.Hash(), key)
	if err != nil {
		return err
	}
	b.Sig = sig
	return nil
}

// Signer recovers the operator address from Sig. A null signature yields
// the zero address.
func (b *Block) Signer() (common.Address, error) {
	return crypto.SignerOrZero(b.Hash(), b.Sig)
}

// IsDepositBlock reports whether the block holds exactly one deposit
// transaction.
func (b *Block) IsDepositBlock() bool {
	return len(b.TransactionSet) == 1 && b.TransactionSet[0] != nil && b.TransactionSet[0].IsDeposit()
}

// Merkle builds the transaction tree. Leaves are the unsigned transaction
// encodings, so each leaf hash equals the transaction hash.
func (b *Block) Merkle() (*merkle.FixedMerkle, error) {
	leaves := make([][]byte, len(b.TransactionSet))
	for i, tx := range b.TransactionSet {
		if tx == nil {
			return nil, errors.Wrapf(ErrNilTransaction, "index %d", i)
		}
		leaves[i] = tx.Encoded()
	}
	return merkle.New(BlockMerkleDepth, leaves)
}

// Root returns the Merkle root submitted to the root chain.
func (b *Block) Root() (common.Hash, error) {
	tree, err := b.Merkle()
	if err != nil {
		return common.Hash{}, err
	}
	return tree.Root(), nil
}

// AddTransaction appends tx and records the positions it spends.
func (b *Block) AddTransaction(tx *Transaction) error {
	if tx == nil {
		return ErrNilTransaction
	}
	if len(b.TransactionSet) >= MaxBlockTransactions {
		return ErrBlockFull
	}
	positions, err := tx.SpentUTXOs()
	if err != nil {
		return err
	}
	b.TransactionSet = append(b.TransactionSet, tx)
	b.spentSet().Append(positions...)
	return nil
}

// SpentUTXOs returns the set of positions spent by transactions added with
// AddTransaction. The set is shared with the block.
func (b *Block) SpentUTXOs() mapset.Set[uint64] {
	return b.spentSet()
}

func (b *Block) spentSet() mapset.Set[uint64] {
	if b.spent == nil {
		b.spent = mapset.NewThreadUnsafeSet[uint64]()
	}
	return b.spent
}

// Copy returns a deep copy of b, including the spent set.
func (b *Block) Copy() *Block {
	cpy := &Block{Sig: b.Sig, Number: b.Number}
	if b.TransactionSet != nil {
		cpy.TransactionSet = make([]*Transaction, len(b.TransactionSet))
		for i, tx := range b.TransactionSet {
			if tx != nil {
				cpy.TransactionSet[i] = tx.Copy()
			}
		}
	}
	if b.spent != nil {
		cpy.spent = b.spent.Clone()
	}
	return cpy
}

func (b *Block) txs() []*Transaction {
	if b.TransactionSet == nil {
		return []*Transaction{}
	}
	return b.TransactionSet
}
