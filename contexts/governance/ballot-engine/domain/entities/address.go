package entities

import (
	"encoding/hex"
	"errors"
	"strings"
)

// AddressLength is the fixed byte width of every caller identity.
const AddressLength = 20

// Address is the opaque identity used for operators, voters, and delegates.
// The zero value is the null sentinel and is never a valid voter or delegate.
type Address [AddressLength]byte

// NullAddress is the distinguished null identity.
var NullAddress Address

var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress decodes a hex identity, with or without a 0x prefix.
func ParseAddress(raw string) (Address, error) {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "0x")
	value = strings.TrimPrefix(value, "0X")
	if len(value) != AddressLength*2 {
		return Address{}, ErrInvalidAddress
	}
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return Address{}, ErrInvalidAddress
	}
	var addr Address
	copy(addr[:], decoded)
	return addr, nil
}

func (a Address) IsNull() bool {
	return a == NullAddress
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}
