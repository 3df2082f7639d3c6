package idemix

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/idemix-card/internal/params"
)

// SystemParameters holds the bit lengths that determine the fixed encoding width
// of every value exchanged with the card.
type SystemParameters struct {
	// Ln is the size of the RSA modulus n.
	Ln int
	// Le is the size of the prime exponent e.
	Le int
	// LePrime is the size of the interval e is chosen from.
	LePrime int
	// Lv is the size of the blinding value v.
	Lv int
	// Lm is the size of an attribute value.
	Lm int
	// LH is the output size of the hash function, and the size of context values.
	LH int
	// LPhi is the statistical zero-knowledge parameter, and the size of nonces.
	LPhi int
	// Lk is the size of a challenge.
	Lk int
	// Lr is the security parameter of prime tests.
	Lr int
}

// DefaultSystemParameters returns the parameters the idemix applet is built for.
func DefaultSystemParameters() *SystemParameters {
	return &SystemParameters{
		Ln:      params.BitsModulus,
		Le:      params.BitsPrimeE,
		LePrime: params.BitsPrimeEInterval,
		Lv:      params.BitsBlinding,
		Lm:      params.BitsAttribute,
		LH:      params.BitsHash,
		LPhi:    params.BitsStatistical,
		Lk:      params.BitsChallenge,
		Lr:      params.BitsPrimeTest,
	}
}

// Validate checks that every width used on the wire is positive.
func (p *SystemParameters) Validate() error {
	if p == nil {
		return errors.New("system parameters: nil")
	}
	widths := []struct {
		name string
		bits int
	}{
		{"l_n", p.Ln}, {"l_e", p.Le}, {"l_v", p.Lv}, {"l_m", p.Lm}, {"l_H", p.LH}, {"l_Phi", p.LPhi},
	}
	for _, w := range widths {
		if w.bits <= 0 {
			return fmt.Errorf("system parameters: %s = %d is invalid", w.name, w.bits)
		}
	}
	return nil
}

type systemParametersMarshal SystemParameters

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *SystemParameters) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*systemParametersMarshal)(p))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, and validates the result.
func (p *SystemParameters) UnmarshalBinary(data []byte) error {
	var pm systemParametersMarshal
	if err := cbor.Unmarshal(data, &pm); err != nil {
		return fmt.Errorf("system parameters: %w", err)
	}
	sp := SystemParameters(pm)
	if err := sp.Validate(); err != nil {
		return err
	}
	*p = sp
	return nil
}
