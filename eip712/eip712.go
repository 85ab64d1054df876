// Package eip712 computes the typed-data hash that wallets sign for child
// chain transactions:
//
//	keccak256(0x1901 || hashStruct(domain) || hashStruct(transaction))
//
// Encoding is done by hand against the fixed transaction type.
package eip712

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/core/types"
	"github.com/eth2030/plasma/crypto"
)

const (
	domainType = "EIP712Domain(string name,string version,address verifyingContract,bytes32 salt)"
	inputType  = "Input(uint256 blknum,uint256 txindex,uint256 oindex)"
	outputType = "Output(address owner,address currency,uint256 amount)"
	txType     = "Transaction(" +
		"Input input0,Input input1,Input input2,Input input3," +
		"Output output0,Output output1,Output output2,Output output3," +
		"bytes32 metadata)" + inputType + outputType
)

var (
	domainTypeHash = crypto.Keccak256Hash([]byte(domainType))
	inputTypeHash  = crypto.Keccak256Hash([]byte(inputType))
	outputTypeHash = crypto.Keccak256Hash([]byte(outputType))
	txTypeHash     = crypto.Keccak256Hash([]byte(txType))
)

var (
	ErrAmbiguousDomain     = errors.New("eip712: both domain and verifying contract given")
	ErrUnsupportedOutput   = errors.New("eip712: non-fungible outputs have no typed encoding")
	ErrInvalidSignatureIdx = errors.New("eip712: signature index out of range")
)

// Default domain values used by the deployed contracts.
var (
	DefaultName    = "OMG Network"
	DefaultVersion = "1"
	DefaultSalt    = common.HexToHash("0xfad5c7f626d80f9256ef01929f3beb96e058b8b4b0e3fe52d84f054c0e2a7a83")
)

// Domain is the EIP-712 domain separator input.
type Domain struct {
	Name              string
	Version           string
	VerifyingContract common.Address
	Salt              common.Hash
}

// DefaultDomain returns the standard domain bound to verifyingContract.
func DefaultDomain(verifyingContract common.Address) Domain {
	return Domain{
		Name:              DefaultName,
		Version:           DefaultVersion,
		VerifyingContract: verifyingContract,
		Salt:              DefaultSalt,
	}
}

// Separator returns hashStruct(domain).
func (d Domain) Separator() common.Hash {
	contract := common.LeftPadBytes(d.VerifyingContract[:], 32)
	return crypto.Keccak256Hash(
		domainTypeHash[:],
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		contract,
		d.Salt[:],
	)
}

// Signer hashes and signs transactions under a fixed domain.
type Signer struct {
	domain    Domain
	separator common.Hash
}

// NewSigner builds a signer from either an explicit domain or a verifying
// contract address, which selects the default domain. Giving both is
// rejected; giving neither uses the default domain with a zero contract.
func NewSigner(domain *Domain, verifyingContract *common.Address) (*Signer, error) {
	if domain != nil && verifyingContract != nil {
		return nil, ErrAmbiguousDomain
	}
	var d Domain
	switch {
	case domain != nil:
		d = *domain
	case verifyingContract != nil:
		d = DefaultDomain(*verifyingContract)
	default:
		d = DefaultDomain(common.Address{})
	}
	return &Signer{domain: d, separator: d.Separator()}, nil
}

// Domain returns the signer's domain.
func (s *Signer) Domain() Domain { return s.domain }

// Hash returns the typed-data hash of tx with the given metadata.
func (s *Signer) Hash(tx *types.Transaction, metadata common.Hash) (common.Hash, error) {
	structHash, err := hashTransaction(tx, metadata)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, s.separator[:], structHash[:]), nil
}

// Sign signs the typed-data hash of tx and stores the signature in slot
// index.
func (s *Signer) Sign(tx *types.Transaction, index int, metadata common.Hash, key *ecdsa.PrivateKey) error {
	if index < 0 || index >= types.NumTxos {
		return errors.Wrapf(ErrInvalidSignatureIdx, "index %d", index)
	}
	hash, err := s.Hash(tx, metadata)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return err
	}
	tx.Signatures[index] = sig
	return nil
}

// Signer recovers the address that produced the signature in slot index.
func (s *Signer) Signer(tx *types.Transaction, index int, metadata common.Hash) (common.Address, error) {
	if index < 0 || index >= types.NumTxos {
		return common.Address{}, errors.Wrapf(ErrInvalidSignatureIdx, "index %d", index)
	}
	hash, err := s.Hash(tx, metadata)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.SignerOrZero(hash, tx.Signatures[index])
}

func hashTransaction(tx *types.Transaction, metadata common.Hash) (common.Hash, error) {
	parts := make([][]byte, 0, 2*types.NumTxos+2)
	parts = append(parts, txTypeHash[:])
	for _, in := range tx.Inputs {
		h := hashInput(in)
		parts = append(parts, h[:])
	}
	for i := range tx.Outputs {
		h, err := hashOutput(&tx.Outputs[i])
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "output %d", i)
		}
		parts = append(parts, h[:])
	}
	parts = append(parts, metadata[:])
	return crypto.Keccak256Hash(parts...), nil
}

func hashInput(in types.TransactionInput) common.Hash {
	return crypto.Keccak256Hash(
		inputTypeHash[:],
		word(new(big.Int).SetUint64(in.Blknum)),
		word(new(big.Int).SetUint64(uint64(in.Txindex))),
		word(new(big.Int).SetUint64(uint64(in.Oindex))),
	)
}

func hashOutput(out *types.TransactionOutput) (common.Hash, error) {
	if !out.IsFungible() {
		return common.Hash{}, ErrUnsupportedOutput
	}
	amount := out.Amount.Bytes32()
	return crypto.Keccak256Hash(
		outputTypeHash[:],
		common.LeftPadBytes(out.Owner[:], 32),
		common.LeftPadBytes(out.Token[:], 32),
		amount[:],
	), nil
}

// word encodes a non-negative integer as a 32-byte big-endian word.
func word(x *big.Int) []byte {
	return math.U256Bytes(x)
}
