// signature.go implements the 65-byte recoverable ECDSA signature used for
// transaction inputs and block commitments.
//
// Layout: r (32) || s (32) || v (1), with v in the 27/28 convention. The
// all-zero signature is the "unsigned" sentinel and is never recovered.
package crypto

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SignatureLength is the length of a recoverable signature in bytes.
const SignatureLength = 65

// recoveryIDOffset is added to the raw 0/1 recovery id.
const recoveryIDOffset = 27

// Signature is a recoverable secp256k1 signature: r || s || v.
type Signature [SignatureLength]byte

// NullSignature is the sentinel for an unsigned slot.
var NullSignature = Signature{}

var (
	ErrNullSignature     = errors.New("crypto: null signature")
	ErrInvalidSigLength  = errors.New("crypto: signature must be 65 bytes")
	ErrInvalidRecoveryID = errors.New("crypto: invalid recovery id")
	ErrSignatureRecovery = errors.New("crypto: public key recovery failed")
)

// BytesToSignature copies b into a Signature. b must be exactly 65 bytes.
func BytesToSignature(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureLength {
		return sig, ErrInvalidSigLength
	}
	copy(sig[:], b)
	return sig, nil
}

// IsNull reports whether the signature is the all-zero sentinel.
func (s Signature) IsNull() bool { return s == NullSignature }

// Bytes returns the signature as a byte slice.
func (s Signature) Bytes() []byte { return s[:] }

// Hex returns the 0x-prefixed hex encoding of the signature.
func (s Signature) Hex() string { return hexutil.Encode(s[:]) }

// R returns the r component.
func (s Signature) R() *big.Int { return new(big.Int).SetBytes(s[:32]) }

// S returns the s component.
func (s Signature) S() *big.Int { return new(big.Int).SetBytes(s[32:64]) }

// V returns the recovery byte as stored.
func (s Signature) V() byte { return s[64] }

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return gethcrypto.GenerateKey()
}

// PubkeyToAddress derives the address controlled by a public key: the low
// 20 bytes of keccak256 over the uncompressed point without its prefix.
func PubkeyToAddress(p ecdsa.PublicKey) common.Address {
	return gethcrypto.PubkeyToAddress(p)
}

// Sign produces a recoverable signature over a 32-byte hash.
//
// The underlying signer returns r || s || recid; r and s are re-encoded as
// minimal big-endian integers padded back to 32 bytes, and the recovery id
// is shifted into the 27/28 convention.
func Sign(hash common.Hash, key *ecdsa.PrivateKey) (Signature, error) {
	var sig Signature
	raw, err := gethcrypto.Sign(hash[:], key)
	if err != nil {
		return sig, errors.Wrap(err, "crypto: sign")
	}
	r := new(big.Int).SetBytes(raw[:32])
	s := new(big.Int).SetBytes(raw[32:64])
	copy(sig[:32], common.LeftPadBytes(r.Bytes(), 32))
	copy(sig[32:64], common.LeftPadBytes(s.Bytes(), 32))
	sig[64] = raw[64] + recoveryIDOffset
	return sig, nil
}

// GetSigner recovers the address that produced sig over hash. Recovery ids
// 0/1 are accepted and treated as 27/28. The null signature is rejected
// without attempting recovery.
func GetSigner(hash common.Hash, sig Signature) (common.Address, error) {
	if sig.IsNull() {
		return common.Address{}, ErrNullSignature
	}
	v := sig[64]
	if v < recoveryIDOffset {
		v += recoveryIDOffset
	}
	if v != 27 && v != 28 {
		return common.Address{}, errors.Wrapf(ErrInvalidRecoveryID, "v=%d", sig[64])
	}
	raw := make([]byte, SignatureLength)
	copy(raw, sig[:64])
	raw[64] = v - recoveryIDOffset

	pub, err := gethcrypto.SigToPub(hash[:], raw)
	if err != nil {
		return common.Address{}, errors.Wrap(ErrSignatureRecovery, err.Error())
	}
	return gethcrypto.PubkeyToAddress(*pub), nil
}

// SignerOrZero is GetSigner with the sentinel behaviour of signer lists:
// the null signature maps to the zero address.
func SignerOrZero(hash common.Hash, sig Signature) (common.Address, error) {
	if sig.IsNull() {
		return common.Address{}, nil
	}
	return GetSigner(hash, sig)
}
