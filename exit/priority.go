// Package exit packs and unpacks the exit priority used by the root chain
// exit queue. A priority is one 256-bit word made of three fields, most
// significant first: exitable-at timestamp, transaction position, exit id.
package exit

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/core/types"
)

var (
	ErrFieldOverflow    = errors.New("exit: field exceeds its width")
	ErrPriorityOverflow = errors.New("exit: priority exceeds scheme width")
	ErrUnknownScheme    = errors.New("exit: unknown priority scheme")
)

// PriorityScheme fixes the bit widths of the three priority fields. The
// two deployed contract generations use incompatible schemes; callers must
// pick the one matching the contract they talk to.
type PriorityScheme struct {
	Name           string
	ExitableAtBits uint
	TxPosBits      uint
	ExitIDBits     uint
}

var (
	// LegacyScheme is the 42/53/160 layout of the first contract generation.
	LegacyScheme = PriorityScheme{Name: "legacy", ExitableAtBits: 42, TxPosBits: 53, ExitIDBits: 160}
	// CurrentScheme is the 32/56/168 layout of the multi-asset contracts.
	CurrentScheme = PriorityScheme{Name: "current", ExitableAtBits: 32, TxPosBits: 56, ExitIDBits: 168}
)

// SchemeByName looks up a scheme by its Name.
func SchemeByName(name string) (PriorityScheme, error) {
	switch name {
	case LegacyScheme.Name:
		return LegacyScheme, nil
	case CurrentScheme.Name, "":
		return CurrentScheme, nil
	}
	return PriorityScheme{}, errors.Wrapf(ErrUnknownScheme, "%q", name)
}

// Width is the total number of bits used by the scheme.
func (s PriorityScheme) Width() uint {
	return s.ExitableAtBits + s.TxPosBits + s.ExitIDBits
}

// ExitPriority is the unpacked form of a priority word.
type ExitPriority struct {
	ExitableAt uint64
	TxPos      uint64
	ExitID     uint256.Int
}

// Encode packs p. Every field must fit its width.
func (s PriorityScheme) Encode(p ExitPriority) (*uint256.Int, error) {
	if !fitsUint64(p.ExitableAt, s.ExitableAtBits) {
		return nil, errors.Wrapf(ErrFieldOverflow, "exitable-at %d over %d bits", p.ExitableAt, s.ExitableAtBits)
	}
	if !fitsUint64(p.TxPos, s.TxPosBits) {
		return nil, errors.Wrapf(ErrFieldOverflow, "tx position %d over %d bits", p.TxPos, s.TxPosBits)
	}
	if uint(p.ExitID.BitLen()) > s.ExitIDBits {
		return nil, errors.Wrapf(ErrFieldOverflow, "exit id %s over %d bits", p.ExitID.Hex(), s.ExitIDBits)
	}
	out := uint256.NewInt(p.ExitableAt)
	out.Lsh(out, s.TxPosBits)
	out.Or(out, uint256.NewInt(p.TxPos))
	out.Lsh(out, s.ExitIDBits)
	return out.Or(out, &p.ExitID), nil
}

// Parse splits priority into its fields. The only check is that priority
// fits the scheme's total width.
func (s PriorityScheme) Parse(priority *uint256.Int) (ExitPriority, error) {
	if uint(priority.BitLen()) > s.Width() {
		return ExitPriority{}, errors.Wrapf(ErrPriorityOverflow, "%d bits, scheme %s allows %d", priority.BitLen(), s.Name, s.Width())
	}
	var p ExitPriority
	p.ExitID.And(priority, mask(s.ExitIDBits))

	rest := new(uint256.Int).Rsh(priority, s.ExitIDBits)
	p.TxPos = new(uint256.Int).And(rest, mask(s.TxPosBits)).Uint64()
	p.ExitableAt = rest.Rsh(rest, s.TxPosBits).Uint64()
	return p, nil
}

// TxPos strips the output index from a UTXO position, leaving the
// block number and transaction index used as the middle priority field.
func TxPos(utxoPos uint64) uint64 {
	return utxoPos / types.TxOffset
}

func fitsUint64(v uint64, bits uint) bool {
	return bits >= 64 || v>>bits == 0
}

func mask(bits uint) *uint256.Int {
	m := new(uint256.Int).Lsh(uint256.NewInt(1), bits)
	return m.SubUint64(m, 1)
}
