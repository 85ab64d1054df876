// Package merkle implements a fixed-depth binary Merkle tree over keccak256,
// padded with a constant null leaf so that every tree of a given depth has
// exactly 2^depth leaves.
package merkle

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/crypto"
)

// MaxDepth bounds the tree depth. 2^24 leaves is far above any block size
// the child chain produces.
const MaxDepth = 24

var (
	ErrInvalidDepth    = errors.New("merkle: invalid depth")
	ErrTooManyLeaves   = errors.New("merkle: too many leaves for depth")
	ErrMemberNotExist  = errors.New("merkle: leaf is not in the tree")
	ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")
)

// NullHash is the padding leaf hash, keccak256 of 32 zero bytes.
var NullHash = crypto.Keccak256Hash(make([]byte, 32))

// FixedMerkle is an immutable tree. Leaves are hashed once on construction;
// levels[0] holds the leaf hashes and levels[depth] holds the root.
type FixedMerkle struct {
	depth  int
	leaves []common.Hash
	levels [][]common.Hash
}

// New builds a tree from raw leaves. Each leaf is hashed with keccak256
// before insertion.
func New(depth int, leaves [][]byte) (*FixedMerkle, error) {
	hashes := make([]common.Hash, len(leaves))
	for i, leaf := range leaves {
		hashes[i] = crypto.Keccak256Hash(leaf)
	}
	return NewFromHashes(depth, hashes)
}

// NewFromHashes builds a tree whose leaves are already hashed.
func NewFromHashes(depth int, hashes []common.Hash) (*FixedMerkle, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, errors.Wrapf(ErrInvalidDepth, "depth %d", depth)
	}
	width := 1 << depth
	if len(hashes) > width {
		return nil, errors.Wrapf(ErrTooManyLeaves, "%d leaves, depth %d", len(hashes), depth)
	}
	t := &FixedMerkle{
		depth:  depth,
		leaves: append([]common.Hash(nil), hashes...),
		levels: make([][]common.Hash, depth+1),
	}
	level := make([]common.Hash, width)
	copy(level, hashes)
	for i := len(hashes); i < width; i++ {
		level[i] = NullHash
	}
	t.levels[0] = level
	for d := 1; d <= depth; d++ {
		prev := t.levels[d-1]
		next := make([]common.Hash, len(prev)/2)
		for i := range next {
			next[i] = hashPair(prev[2*i], prev[2*i+1])
		}
		t.levels[d] = next
	}
	return t, nil
}

// Root returns the tree root.
func (t *FixedMerkle) Root() common.Hash { return t.levels[t.depth][0] }

// Depth returns the tree depth.
func (t *FixedMerkle) Depth() int { return t.depth }

// Leaves returns the supplied leaf hashes, without padding.
func (t *FixedMerkle) Leaves() []common.Hash {
	return append([]common.Hash(nil), t.leaves...)
}

// IsMember reports whether the hash of leaf is one of the supplied leaves.
func (t *FixedMerkle) IsMember(leaf []byte) bool {
	return t.indexOf(crypto.Keccak256Hash(leaf)) >= 0
}

// CreateMembershipProof returns the proof for the first occurrence of leaf.
func (t *FixedMerkle) CreateMembershipProof(leaf []byte) ([]byte, error) {
	idx := t.indexOf(crypto.Keccak256Hash(leaf))
	if idx < 0 {
		return nil, ErrMemberNotExist
	}
	return t.ProofAt(idx)
}

// ProofAt returns the concatenated sibling hashes, leaf level first, for the
// leaf at index. The proof is always depth*32 bytes.
func (t *FixedMerkle) ProofAt(index int) ([]byte, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "index %d", index)
	}
	proof := make([]byte, 0, t.depth*common.HashLength)
	for d := 0; d < t.depth; d++ {
		sibling := t.levels[d][index^1]
		proof = append(proof, sibling[:]...)
		index >>= 1
	}
	return proof, nil
}

// CheckMembership verifies a proof for leaf at index against this tree's
// root.
func (t *FixedMerkle) CheckMembership(leaf []byte, index int, proof []byte) bool {
	if len(proof) != t.depth*common.HashLength {
		return false
	}
	return VerifyProof(t.Root(), crypto.Keccak256Hash(leaf), index, proof)
}

func (t *FixedMerkle) indexOf(h common.Hash) int {
	for i, leaf := range t.leaves {
		if leaf == h {
			return i
		}
	}
	return -1
}

// VerifyProof folds proof over leafHash and compares the result with root.
// Bit d of index selects whether the running hash is the right (1) or left
// (0) operand at level d.
func VerifyProof(root, leafHash common.Hash, index int, proof []byte) bool {
	if index < 0 || len(proof)%common.HashLength != 0 {
		return false
	}
	depth := len(proof) / common.HashLength
	if depth > MaxDepth || index >= 1<<depth {
		return false
	}
	computed := leafHash
	for d := 0; d < depth; d++ {
		sibling := common.BytesToHash(proof[d*common.HashLength : (d+1)*common.HashLength])
		if index&1 == 0 {
			computed = hashPair(computed, sibling)
		} else {
			computed = hashPair(sibling, computed)
		}
		index >>= 1
	}
	return bytes.Equal(computed[:], root[:])
}

func hashPair(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}
