package types

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/crypto"
)

// NumTxos is the fixed number of input, output and signature slots. It
// mirrors the root chain contract's storage layout.
const NumTxos = 4

// Transaction is a fixed-arity child chain transaction. Unused slots hold
// DefaultInput, DefaultOutput and crypto.NullSignature.
//
// The signed encoding is [inputs, outputs, signatures]; the hash covers the
// unsigned encoding [inputs, outputs] only, so each input can be signed
// independently. Spent is local bookkeeping and never encoded.
type Transaction struct {
	Inputs     [NumTxos]TransactionInput
	Outputs    [NumTxos]TransactionOutput
	Signatures [NumTxos]crypto.Signature
	Spent      [NumTxos]bool `rlp:"-"`
}

// unsignedTransaction is the hashed projection of a Transaction.
type unsignedTransaction struct {
	Inputs  [NumTxos]TransactionInput
	Outputs [NumTxos]TransactionOutput
}

// NewTransaction builds a transaction, right-padding each list to NumTxos
// with its sentinel. Supplying more than NumTxos entries is an error.
func NewTransaction(inputs []TransactionInput, outputs []TransactionOutput, signatures []crypto.Signature) (*Transaction, error) {
	if len(inputs) > NumTxos {
		return nil, errors.Wrapf(ErrTooManyInputs, "got %d", len(inputs))
	}
	if len(outputs) > NumTxos {
		return nil, errors.Wrapf(ErrTooManyOutputs, "got %d", len(outputs))
	}
	if len(signatures) > NumTxos {
		return nil, errors.Wrapf(ErrTooManySignatures, "got %d", len(signatures))
	}
	tx := new(Transaction)
	copy(tx.Inputs[:], inputs)
	copy(tx.Outputs[:], outputs)
	copy(tx.Signatures[:], signatures)
	return tx, nil
}

// NewDepositTransaction returns a transaction with no inputs and a single
// fungible output of amount token owned by owner.
func NewDepositTransaction(owner, token common.Address, amount *uint256.Int) *Transaction {
	tx := new(Transaction)
	tx.Outputs[0] = NewFungibleOutput(owner, token, amount)
	return tx
}

// DecodeTransaction decodes the signed encoding. The input must contain
// exactly one list of exactly three fields.
func DecodeTransaction(b []byte) (*Transaction, error) {
	tx := new(Transaction)
	if err := rlp.DecodeBytes(b, tx); err != nil {
		return nil, errors.Wrap(err, "types: decode transaction")
	}
	return tx, nil
}

// DecodeUnsignedTransaction decodes the unsigned encoding. Signatures of the
// result are null.
func DecodeUnsignedTransaction(b []byte) (*Transaction, error) {
	var utx unsignedTransaction
	if err := rlp.DecodeBytes(b, &utx); err != nil {
		return nil, errors.Wrap(err, "types: decode unsigned transaction")
	}
	return &Transaction{Inputs: utx.Inputs, Outputs: utx.Outputs}, nil
}

// Encoded returns the unsigned encoding [inputs, outputs].
func (tx *Transaction) Encoded() []byte {
	return mustEncode(&unsignedTransaction{Inputs: tx.Inputs, Outputs: tx.Outputs})
}

// EncodedSigned returns the full encoding [inputs, outputs, signatures].
func (tx *Transaction) EncodedSigned() []byte {
	return mustEncode(tx)
}

// Hash returns keccak256 of the unsigned encoding. It is both the signing
// hash and the Merkle leaf hash.
func (tx *Transaction) Hash() common.Hash {
	return crypto.Keccak256Hash(tx.Encoded())
}

// Sign sets the signature for input slot index. Slots are independent, so a
// transaction may be partially signed.
func (tx *Transaction) Sign(index int, key *ecdsa.PrivateKey) error {
	if index < 0 || index >= NumTxos {
		return errors.Wrapf(ErrSlotOutOfRange, "signature index %d", index)
	}
	sig, err := crypto.Sign(tx.Hash(), key)
	if err != nil {
		return err
	}
	tx.Signatures[index] = sig
	return nil
}

// Output returns the output in slot index.
func (tx *Transaction) Output(index int) (TransactionOutput, error) {
	if index < 0 || index >= NumTxos {
		return TransactionOutput{}, errors.Wrapf(ErrSlotOutOfRange, "output index %d", index)
	}
	return tx.Outputs[index], nil
}

// IsDeposit reports whether every input is the empty sentinel.
func (tx *Transaction) IsDeposit() bool {
	for _, in := range tx.Inputs {
		if !in.IsEmpty() {
			return false
		}
	}
	return true
}

// Signers recovers the signer of every signature slot. Null slots yield the
// zero address.
func (tx *Transaction) Signers() ([NumTxos]common.Address, error) {
	var signers [NumTxos]common.Address
	hash := tx.Hash()
	for i, sig := range tx.Signatures {
		addr, err := crypto.SignerOrZero(hash, sig)
		if err != nil {
			return signers, errors.Wrapf(err, "signature %d", i)
		}
		signers[i] = addr
	}
	return signers, nil
}

// SpentUTXOs returns the positions referenced by the non-empty inputs.
func (tx *Transaction) SpentUTXOs() ([]uint64, error) {
	var positions []uint64
	for _, in := range tx.Inputs {
		if in.Blknum == 0 {
			continue
		}
		pos, err := in.Identifier()
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// Copy returns a deep copy of tx.
func (tx *Transaction) Copy() *Transaction {
	cpy := *tx
	for i := range cpy.Outputs {
		if ids := tx.Outputs[i].TokenIDs; ids != nil {
			cpy.Outputs[i].TokenIDs = append([]uint256.Int(nil), ids...)
		}
	}
	return &cpy
}

func mustEncode(v interface{}) []byte {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		// Every field type has a total encoder.
		panic("types: encode: " + err.Error())
	}
	return b
}
