package sample

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/internal/params"
)

const maxIterations = 255

var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// Bits samples a uniform x ∈ [0, 2ᵇⁱᵗˢ).
func Bits(rand io.Reader, bits int) *saferith.Nat {
	if bits <= 0 {
		return new(saferith.Nat).SetUint64(0)
	}
	buf := make([]byte, (bits+7)/8)
	mustReadBits(rand, buf)
	buf[0] &= 0xFF >> (8*len(buf) - bits)
	return new(saferith.Nat).SetBytes(buf)
}

// ModN samples an element of ℤₙ.
func ModN(rand io.Reader, n *saferith.Modulus) *saferith.Nat {
	out := new(saferith.Nat)
	buf := make([]byte, (n.BitLen()+7)/8)
	for {
		mustReadBits(rand, buf)
		out.SetBytes(buf)
		if _, _, lt := out.CmpMod(n); lt == 1 {
			return out
		}
	}
}

// Nonce samples a verifier or issuer nonce of lΦ bits.
func Nonce(rand io.Reader) *saferith.Nat {
	return Bits(rand, params.BitsStatistical)
}
