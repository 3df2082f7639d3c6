package codec

import (
	"math/big"
	"testing"
	"testing/quick"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFixedWidthRoundtrip(data []byte, extra uint8) bool {
	x := new(saferith.Nat).SetBytes(data)
	bits := x.TrueLen() + int(extra)
	if bits == 0 {
		bits = 1
	}
	out, err := FixedWidth(x, bits)
	if err != nil {
		return false
	}
	if len(out) != ByteLen(bits) {
		return false
	}
	return FromUnsignedBytes(out).Big().Cmp(x.Big()) == 0
}

func TestFixedWidthRoundtrip(t *testing.T) {
	err := quick.Check(testFixedWidthRoundtrip, &quick.Config{})
	if err != nil {
		t.Error(err)
	}
}

func testToUnsignedBytesMinimal(data []byte) bool {
	out, err := ToUnsignedBytes(new(saferith.Nat).SetBytes(data))
	if err != nil {
		return false
	}
	return len(out) == 0 || out[0] != 0
}

func TestToUnsignedBytesMinimal(t *testing.T) {
	err := quick.Check(testToUnsignedBytesMinimal, &quick.Config{})
	if err != nil {
		t.Error(err)
	}
}

func TestToUnsignedBytes(t *testing.T) {
	tests := []struct {
		name string
		in   *big.Int
		want []byte
	}{
		{"zero", big.NewInt(0), []byte{}},
		{"one byte", big.NewInt(0x7F), []byte{0x7F}},
		{"high bit set", big.NewInt(0x80), []byte{0x80}},
		{"full byte boundary", big.NewInt(0xFFFF), []byte{0xFF, 0xFF}},
		{"leading zero trimmed", big.NewInt(0x0100), []byte{0x01, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := FromBig(tt.in)
			require.NoError(t, err)
			got, err := ToUnsignedBytes(x)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromBigRejectsNegative(t *testing.T) {
	_, err := FromBig(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = FromBig(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ToUnsignedBytes(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFixedWidth(t *testing.T) {
	x := new(saferith.Nat).SetUint64(0x0102)

	out, err := FixedWidth(x, 80)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0x01, 0x02}, out)

	// 9 bits round up to 2 bytes
	out, err = FixedWidth(x, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, out)

	// a large announced length does not matter, only the value does
	wide := new(saferith.Nat).SetBytes(append(make([]byte, 255), 0x2A))
	out, err = FixedWidth(wide, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2A}, out)
}

func TestFixedWidthZero(t *testing.T) {
	zero := new(saferith.Nat).SetUint64(0)
	for bits, want := range map[int]int{1: 1, 8: 1, 12: 2, 80: 10, 597: 75} {
		out, err := FixedWidth(zero, bits)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, want), out, "%d bits", bits)
	}
}

func TestFixedWidthOverflow(t *testing.T) {
	x := new(saferith.Nat).SetUint64(0x010000)
	out, err := FixedWidth(x, 16)
	assert.ErrorIs(t, err, ErrEncodingOverflow)
	assert.Nil(t, out)

	_, err = FixedWidth(x, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = FixedWidth(nil, 8)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFromUnsignedBytesIgnoresSign(t *testing.T) {
	x := FromUnsignedBytes([]byte{0xFF, 0x00})
	assert.Equal(t, 0, x.Big().Cmp(big.NewInt(0xFF00)))
	assert.Equal(t, 0, FromUnsignedBytes(nil).Big().Sign())
}
