package issuance

import (
	"fmt"

	"github.com/taurusgroup/idemix-card/pkg/apdu"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/protocol"
)

// GenerateMasterSecret asks the card to generate its master secret m₀.
// A card that already holds one answers 6986, which is logged and ignored.
func GenerateMasterSecret(r *protocol.Runner) error {
	_, outcome, err := r.Do(protocol.Step{
		Name:        "GENERATE_SECRET",
		Instruction: apdu.InsGenerateSecret,
		Tolerate:    []apdu.Outcome{apdu.ConditionNotSatisfied},
	})
	if err != nil {
		return fmt.Errorf("issuance: generate master secret: %w", err)
	}
	if outcome == apdu.ConditionNotSatisfied {
		r.Log.Warn().Msg("master secret already generated")
	}
	return nil
}

// SetAttributes sends the value of every attribute of the credential structure,
// in structure order, each on lₘ bits. The i-th attribute is sent with P1 = i, starting at 1.
// All values must be present, this is checked before anything is sent.
func SetAttributes(r *protocol.Runner, s *Session, values idemix.Values) error {
	if err := s.expect(PublicKeySet); err != nil {
		return err
	}
	for _, a := range s.attributes {
		if v, ok := values[a.Name]; !ok || v == nil {
			return fmt.Errorf("issuance: attribute %q: %w", a.Name, protocol.ErrMissingAttribute)
		}
	}

	r = r.For(protocolID, s.ctx)
	for i, a := range s.attributes {
		err := r.Send(protocol.Step{
			Name:        fmt.Sprintf("ISSUE_ATTRIBUTES[%d]", i+1),
			Instruction: apdu.InsIssueAttributes,
			P1:          byte(i + 1),
			Tolerate:    []apdu.Outcome{apdu.InstructionNotSupported},
		}, values[a.Name], s.ctx.Params.Lm)
		if err != nil {
			return s.abort(fmt.Errorf("issuance: attribute %q: %w", a.Name, err))
		}
	}
	s.state = AttributesSet
	r.Log.Debug().Int("attributes", len(s.attributes)).Msg("attributes set")
	return nil
}
