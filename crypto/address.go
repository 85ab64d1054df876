// address.go normalises the accepted address encodings to canonical 20-byte
// values.
//
// Accepted forms:
//   - 20 raw bytes
//   - 24 raw bytes: 20-byte address followed by keccak256(address)[:4]
//   - 40 or 48 hex characters, optionally prefixed with 0x (42/50 chars)
//   - an integer below 2^160
package crypto

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	checksumLength        = 4
	checksummedAddressLen = common.AddressLength + checksumLength
)

var (
	ErrInvalidAddressFormat = errors.New("crypto: invalid address format")
	ErrAddressChecksum      = errors.New("crypto: address checksum mismatch")
)

// NormalizeAddress returns the canonical address for a raw 20-byte or
// 24-byte checksummed value.
func NormalizeAddress(b []byte) (common.Address, error) {
	switch len(b) {
	case common.AddressLength:
		return common.BytesToAddress(b), nil
	case checksummedAddressLen:
		addr, sum := b[:common.AddressLength], b[common.AddressLength:]
		if !bytes.Equal(Keccak256(addr)[:checksumLength], sum) {
			return common.Address{}, ErrAddressChecksum
		}
		return common.BytesToAddress(addr), nil
	default:
		return common.Address{}, errors.Wrapf(ErrInvalidAddressFormat, "length %d", len(b))
	}
}

// ParseAddress decodes a hex address, with or without 0x prefix, in either
// the plain 40-character or the checksummed 48-character form.
func ParseAddress(s string) (common.Address, error) {
	if (len(s) == 42 || len(s) == 50) && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
	}
	if len(s) != 2*common.AddressLength && len(s) != 2*checksummedAddressLen {
		return common.Address{}, errors.Wrapf(ErrInvalidAddressFormat, "%q", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return common.Address{}, errors.Wrapf(ErrInvalidAddressFormat, "%q: %v", s, err)
	}
	return NormalizeAddress(b)
}

// AddressFromInt converts an integer below 2^160 to a zero-padded address.
func AddressFromInt(x *big.Int) (common.Address, error) {
	if x == nil || x.Sign() < 0 || x.BitLen() > 8*common.AddressLength {
		return common.Address{}, errors.Wrapf(ErrInvalidAddressFormat, "integer %v out of range", x)
	}
	return common.BytesToAddress(x.Bytes()), nil
}

// ChecksumAddress returns the 24-byte checksummed form of addr.
func ChecksumAddress(addr common.Address) []byte {
	out := make([]byte, 0, checksummedAddressLen)
	out = append(out, addr[:]...)
	return append(out, Keccak256(addr[:])[:checksumLength]...)
}
