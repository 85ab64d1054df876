package types

import (
	"io"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// OutputKind selects the value carried by a TransactionOutput.
type OutputKind uint8

const (
	// FungibleOutput carries an amount of Token.
	FungibleOutput OutputKind = iota
	// NonFungibleOutput carries a set of Token ids.
	NonFungibleOutput
)

func (k OutputKind) String() string {
	switch k {
	case FungibleOutput:
		return "fungible"
	case NonFungibleOutput:
		return "non-fungible"
	default:
		return "unknown"
	}
}

// TransactionOutput assigns value to an owner. The zero Token address is
// the native asset. Exactly one of Amount or TokenIDs is meaningful,
// according to Kind.
//
// Encoding: [owner, token, amount] or [owner, token, [id0, id1, ...]].
type TransactionOutput struct {
	Owner    common.Address
	Token    common.Address
	Kind     OutputKind
	Amount   uint256.Int
	TokenIDs []uint256.Int
}

// DefaultOutput is the padding output: zero owner, native token, zero amount.
var DefaultOutput = TransactionOutput{}

// NewFungibleOutput returns an output holding amount of token.
func NewFungibleOutput(owner, token common.Address, amount *uint256.Int) TransactionOutput {
	out := TransactionOutput{Owner: owner, Token: token, Kind: FungibleOutput}
	if amount != nil {
		out.Amount = *amount
	}
	return out
}

// NewNonFungibleOutput returns an output holding the given token ids. The
// ids are sorted ascending and duplicates are dropped.
func NewNonFungibleOutput(owner, token common.Address, ids []*uint256.Int) TransactionOutput {
	out := TransactionOutput{Owner: owner, Token: token, Kind: NonFungibleOutput}
	if len(ids) == 0 {
		return out
	}
	sorted := make([]uint256.Int, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			sorted = append(sorted, *id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lt(&sorted[j]) })
	for i := range sorted {
		if i > 0 && sorted[i].Eq(&out.TokenIDs[len(out.TokenIDs)-1]) {
			continue
		}
		out.TokenIDs = append(out.TokenIDs, sorted[i])
	}
	return out
}

// IsFungible reports whether the output carries an amount.
func (o *TransactionOutput) IsFungible() bool { return o.Kind != NonFungibleOutput }

// IsDefault reports whether o equals the padding output.
func (o *TransactionOutput) IsDefault() bool {
	return o.IsFungible() && o.Owner == (common.Address{}) && o.Token == (common.Address{}) && o.Amount.IsZero()
}

// HasTokenID reports whether a non-fungible output contains id.
func (o *TransactionOutput) HasTokenID(id *uint256.Int) bool {
	i := sort.Search(len(o.TokenIDs), func(i int) bool { return !o.TokenIDs[i].Lt(id) })
	return i < len(o.TokenIDs) && o.TokenIDs[i].Eq(id)
}

// EncodeRLP implements rlp.Encoder.
func (o TransactionOutput) EncodeRLP(w io.Writer) error {
	var value interface{}
	if o.IsFungible() {
		value = o.Amount.ToBig()
	} else {
		ids := make([]*big.Int, len(o.TokenIDs))
		for i := range o.TokenIDs {
			ids[i] = o.TokenIDs[i].ToBig()
		}
		value = ids
	}
	return rlp.Encode(w, []interface{}{o.Owner, o.Token, value})
}

// DecodeRLP implements rlp.Decoder. The value kind is taken from the shape
// of the third element; non-fungible ids must be strictly ascending and no
// field may follow the value.
func (o *TransactionOutput) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	var out TransactionOutput
	if err := s.Decode(&out.Owner); err != nil {
		return errors.Wrap(err, "output owner")
	}
	if err := s.Decode(&out.Token); err != nil {
		return errors.Wrap(err, "output token")
	}
	kind, _, err := s.Kind()
	if err != nil {
		return errors.Wrap(err, "output value")
	}
	if kind == rlp.List {
		out.Kind = NonFungibleOutput
		if out.TokenIDs, err = decodeTokenIDs(s); err != nil {
			return err
		}
	} else {
		amount, err := readUint256(s)
		if err != nil {
			return errors.Wrap(err, "output amount")
		}
		out.Amount = *amount
	}
	if err := s.ListEnd(); err != nil {
		return errors.Wrap(ErrTooManyFields, "output")
	}
	*o = out
	return nil
}

func decodeTokenIDs(s *rlp.Stream) ([]uint256.Int, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	var ids []uint256.Int
	for {
		id, err := readUint256(s)
		if err == rlp.EOL {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "output token id")
		}
		if n := len(ids); n > 0 && !ids[n-1].Lt(id) {
			return nil, ErrNonCanonicalTokenIDs
		}
		ids = append(ids, *id)
	}
	return ids, s.ListEnd()
}

func readUint256(s *rlp.Stream) (*uint256.Int, error) {
	b, err := s.BigInt()
	if err != nil {
		return nil, err
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return v, nil
}
