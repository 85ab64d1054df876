package types

import "github.com/pkg/errors"

// Format errors. These are surfaced to the caller as soon as they are
// detected and never coerced.
var (
	ErrTooManyInputs        = errors.New("types: too many inputs")
	ErrTooManyOutputs       = errors.New("types: too many outputs")
	ErrTooManySignatures    = errors.New("types: too many signatures")
	ErrTooManyFields        = errors.New("types: input list has too many elements")
	ErrSlotOutOfRange       = errors.New("types: slot index out of range")
	ErrNonCanonicalTokenIDs = errors.New("types: token ids must be strictly ascending")
	ErrAmountOverflow       = errors.New("types: value exceeds 256 bits")
	ErrPositionOverflow     = errors.New("types: utxo position overflows uint64")
	ErrNilTransaction       = errors.New("types: nil transaction")
)
