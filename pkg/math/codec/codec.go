// Package codec converts natural numbers to and from the unsigned, big-endian,
// fixed width byte strings carried in card commands.
package codec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

var (
	// ErrInvalidArgument is returned for nil or negative values and non-positive widths.
	ErrInvalidArgument = errors.New("codec: invalid argument")
	// ErrEncodingOverflow is returned when a value does not fit in its designated width.
	ErrEncodingOverflow = errors.New("codec: value exceeds field width")
)

// ByteLen returns ⌈bits/8⌉.
func ByteLen(bits int) int {
	if bits <= 0 {
		return 0
	}
	return (bits + 7) / 8
}

// FromBig converts a signed big.Int into a Nat whose announced length is its bit length.
// Negative values have no unsigned encoding and are rejected.
func FromBig(x *big.Int) (*saferith.Nat, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil integer", ErrInvalidArgument)
	}
	if x.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative integer", ErrInvalidArgument)
	}
	return new(saferith.Nat).SetBig(x, x.BitLen()), nil
}

// ToUnsignedBytes returns the minimal big-endian encoding of x.
// The result never starts with a zero byte; zero encodes as an empty slice.
func ToUnsignedBytes(x *saferith.Nat) ([]byte, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil natural", ErrInvalidArgument)
	}
	return x.Big().Bytes(), nil
}

// FixedWidth returns exactly ⌈bits/8⌉ bytes holding x, left padded with zeros.
//
// A value whose minimal encoding is longer than the target width is never
// truncated: ErrEncodingOverflow is returned instead, and no output is produced.
func FixedWidth(x *saferith.Nat, bits int) ([]byte, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil natural", ErrInvalidArgument)
	}
	if bits <= 0 {
		return nil, fmt.Errorf("%w: width of %d bits", ErrInvalidArgument, bits)
	}
	size := ByteLen(bits)
	if need := ByteLen(x.TrueLen()); need > size {
		return nil, fmt.Errorf("%w: %d bytes needed, field holds %d", ErrEncodingOverflow, need, size)
	}
	return x.Big().FillBytes(make([]byte, size)), nil
}

// FromUnsignedBytes interprets data as an unsigned big-endian number.
// The announced length of the result is 8⋅len(data).
func FromUnsignedBytes(data []byte) *saferith.Nat {
	return new(saferith.Nat).SetBytes(data)
}
