package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"

	"github.com/cronokirby/saferith"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/idemix-card/internal/test"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/math/sample"
	"github.com/taurusgroup/idemix-card/protocols/smartcard"
)

const location = "identity"

func random(bits int) *saferith.Nat { return sample.Bits(rand.Reader, bits) }

func nat(x uint64) *saferith.Nat { return new(saferith.Nat).SetUint64(x) }

// modulus samples a bits long n with its top bit set.
func modulus(bits int) *saferith.Modulus {
	top := new(saferith.Nat).Lsh(nat(1), uint(bits-1), -1)
	return saferith.ModulusFromNat(new(saferith.Nat).Add(random(bits-1), top, bits))
}

// issuerFor stands in for a remote issuer whose key has modulus n.
// The card simulator does not check its values.
func issuerFor(n *saferith.Modulus, p *idemix.SystemParameters) func(*idemix.Message) (*idemix.Message, error) {
	return func(msg *idemix.Message) (*idemix.Message, error) {
		if _, err := msg.Value(idemix.CapU); err != nil {
			return nil, err
		}
		return idemix.NewMessage(map[idemix.IssuanceValue]*saferith.Nat{
			idemix.CapA:        sample.ModN(rand.Reader, n),
			idemix.E:           random(p.Le - 1),
			idemix.VPrimePrime: random(p.Lv - 1),
		}, idemix.NewProof(random(p.LH), map[string]idemix.SValue{
			idemix.SE: {Value: sample.ModN(rand.Reader, n)},
		}, nil)), nil
	}
}

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	p := idemix.DefaultSystemParameters()

	structure := &idemix.CredentialStructure{Attributes: []idemix.AttributeStructure{
		{Name: "over18", KeyIndex: 1},
		{Name: "country", KeyIndex: 2},
		{Name: "expiry", KeyIndex: 3},
	}}
	store := idemix.NewMapStore()
	store.Add(location, structure)

	n := modulus(p.Ln)
	element := func() *saferith.Nat { return sample.ModN(rand.Reader, n) }
	spec := &idemix.IssuanceSpec{
		PublicKey: &idemix.IssuerPublicKey{
			N:      n.Nat(),
			Z:      element(),
			S:      element(),
			R:      []*saferith.Nat{element(), element(), element(), element()},
			Params: p,
		},
		CredentialStructure: structure,
		Context:             random(p.LH),
	}
	values := idemix.Values{"over18": nat(1), "country": nat(528), "expiry": nat(20301231)}

	card := test.NewCard()
	err := test.Run(context.Background(), card, func(link *test.Network) error {
		s := smartcard.New(link, smartcard.WithLogger(log), smartcard.WithStore(store))
		if err := s.Open(); err != nil {
			return err
		}
		defer s.Close()

		if err := s.VerifyPIN(card.PIN); err != nil {
			return err
		}
		if err := Issue(s, spec, values, sample.Nonce(rand.Reader), issuerFor(n, p)); err != nil {
			return err
		}
		proof, err := Prove(s, location, structure, map[string]bool{"over18": true}, sample.Nonce(rand.Reader))
		if err != nil {
			return err
		}
		raw, err := proof.MarshalBinary()
		if err != nil {
			return err
		}
		log.Info().
			Int("size", len(raw)).
			Str("transcript", hex.EncodeToString(s.Transcript()[:16])).
			Msg("proof ready")
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}
