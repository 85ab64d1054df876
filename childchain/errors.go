package childchain

import "github.com/pkg/errors"

// Validation errors. ChildChain.InsertBlock returns them; AddBlock logs them
// and reports false.
var (
	ErrInvalidBlockSignature = errors.New("childchain: invalid block signature")
	ErrInvalidTxSignature    = errors.New("childchain: invalid transaction signature")
	ErrTxAlreadySpent        = errors.New("childchain: transaction input already spent")
	ErrTxAmountMismatch      = errors.New("childchain: output value exceeds input value")
)

// Ordering and lookup errors.
var (
	ErrBlockBuffered      = errors.New("childchain: block buffered until its predecessor arrives")
	ErrStaleBlock         = errors.New("childchain: block number already passed")
	ErrKnownBlock         = errors.New("childchain: block already applied")
	ErrUnknownBlock       = errors.New("childchain: unknown block")
	ErrUnknownTransaction = errors.New("childchain: unknown transaction")
	ErrNotSpendingInput   = errors.New("childchain: transaction does not spend the output")
	ErrNotOperator        = errors.New("childchain: key does not belong to the operator")
	ErrRootChainSubmit    = errors.New("childchain: root chain rejected block")
	ErrDepositTransaction = errors.New("childchain: deposit transactions only enter through deposit blocks")
)
