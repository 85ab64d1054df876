package types

// TransactionInput references a prior output by position.
type TransactionInput struct {
	Blknum  uint64
	Txindex uint32
	Oindex  uint8
}

// DefaultInput is the empty-input sentinel used for padding. A transaction
// whose inputs are all DefaultInput is a deposit.
var DefaultInput = TransactionInput{}

// NewTransactionInput builds an input from its position fields.
func NewTransactionInput(blknum uint64, txindex uint32, oindex uint8) TransactionInput {
	return TransactionInput{Blknum: blknum, Txindex: txindex, Oindex: oindex}
}

// InputFromUTXOPos builds the input spending the output at pos.
func InputFromUTXOPos(pos uint64) (TransactionInput, error) {
	blknum, txindex, oindex, err := DecodeUTXOPos(pos)
	if err != nil {
		return TransactionInput{}, err
	}
	return TransactionInput{Blknum: blknum, Txindex: txindex, Oindex: oindex}, nil
}

// IsEmpty reports whether in is the empty-input sentinel.
func (in TransactionInput) IsEmpty() bool { return in == DefaultInput }

// Identifier returns the UTXO position of the referenced output.
func (in TransactionInput) Identifier() (uint64, error) {
	return EncodeUTXOPos(in.Blknum, in.Txindex, in.Oindex)
}
