package proto

import (
	"errors"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/pkg/math/codec"
)

// NatMarshaller is a wrapper used to direct serialization of saferith.Nat.
//
// The value is written in its minimal unsigned form; the announced length is
// not preserved, since every consumer re-encodes it at a protocol defined width.
type NatMarshaller struct {
	*saferith.Nat
}

// MarshalBinary implements encoding.BinaryMarshaler, which cbor uses to
// produce a byte string.
func (m NatMarshaller) MarshalBinary() ([]byte, error) {
	if m.Nat == nil {
		return nil, errors.New("proto: nil natural")
	}
	return codec.ToUnsignedBytes(m.Nat)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *NatMarshaller) UnmarshalBinary(data []byte) error {
	m.Nat = codec.FromUnsignedBytes(data)
	return nil
}

// NatMap converts a map of naturals into its marshallable form.
func NatMap[K comparable](in map[K]*saferith.Nat) map[K]NatMarshaller {
	out := make(map[K]NatMarshaller, len(in))
	for k, v := range in {
		out[k] = NatMarshaller{v}
	}
	return out
}

// FromNatMap is the inverse of NatMap.
func FromNatMap[K comparable](in map[K]NatMarshaller) map[K]*saferith.Nat {
	out := make(map[K]*saferith.Nat, len(in))
	for k, v := range in {
		out[k] = v.Nat
	}
	return out
}
