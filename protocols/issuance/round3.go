package issuance

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/protocol"
)

// Round3 sends the issuer's signature (A, e, v'') and its proof (c', sₑ).
// The card verifies both and stores the credential, nothing is returned on success.
func Round3(r *protocol.Runner, s *Session, msg *idemix.Message) error {
	if err := s.expect(Round1Sent); err != nil {
		return err
	}
	in, err := parseRound2(msg)
	if err != nil {
		return fmt.Errorf("issuance: round 3: %w", err)
	}

	r = r.For(protocolID, s.ctx)
	p := s.ctx.Params
	signature := []struct {
		step protocol.Step
		x    *saferith.Nat
		bits int
	}{
		{protocol.Step{Name: "ISSUE_SIGNATURE A", P1: apdu.P1SignatureA}, in.A, p.Ln},
		{protocol.Step{Name: "ISSUE_SIGNATURE e", P1: apdu.P1SignatureE}, in.E, p.Le},
		{protocol.Step{Name: "ISSUE_SIGNATURE v''", P1: apdu.P1SignatureV}, in.VPrimePrime, p.Lv},
	}
	for _, e := range signature {
		e.step.Instruction = apdu.InsIssueSignature
		if err = r.Send(e.step, e.x, e.bits); err != nil {
			return s.abort(fmt.Errorf("issuance: round 3: %w", err))
		}
	}
	if _, _, err = r.Do(protocol.Step{
		Name:        "ISSUE_SIGNATURE verify",
		Instruction: apdu.InsIssueSignature,
		P1:          apdu.P1SignatureVerify,
	}); err != nil {
		return s.abort(fmt.Errorf("issuance: round 3: signature rejected: %w", err))
	}
	s.state = SignatureReceived

	proof := []struct {
		step protocol.Step
		x    *saferith.Nat
		bits int
	}{
		{protocol.Step{Name: "ISSUE_PROOF_A c'", P1: apdu.P1ProofAChallenge}, in.Challenge, p.LH},
		{protocol.Step{Name: "ISSUE_PROOF_A s_e", P1: apdu.P1ProofASE}, in.SE, p.Ln},
	}
	for _, e := range proof {
		e.step.Instruction = apdu.InsIssueProofA
		if err = r.Send(e.step, e.x, e.bits); err != nil {
			return s.abort(fmt.Errorf("issuance: round 3: %w", err))
		}
	}
	if _, _, err = r.Do(protocol.Step{
		Name:        "ISSUE_PROOF_A verify",
		Instruction: apdu.InsIssueProofA,
		P1:          apdu.P1ProofAVerify,
	}); err != nil {
		return s.abort(fmt.Errorf("issuance: round 3: proof rejected: %w", err))
	}

	s.state = Terminal
	r.Log.Info().Msg("credential issued")
	return nil
}

// round2 holds the values of the issuer's second message.
type round2 struct {
	A, E, VPrimePrime *saferith.Nat
	Challenge, SE     *saferith.Nat
}

func parseRound2(msg *idemix.Message) (*round2, error) {
	var (
		out round2
		err error
	)
	if out.A, err = msg.Value(idemix.CapA); err != nil {
		return nil, err
	}
	if out.E, err = msg.Value(idemix.E); err != nil {
		return nil, err
	}
	if out.VPrimePrime, err = msg.Value(idemix.VPrimePrime); err != nil {
		return nil, err
	}
	if msg.Proof == nil || msg.Proof.Challenge == nil {
		return nil, errors.New("message: missing proof")
	}
	out.Challenge = msg.Proof.Challenge
	if out.SE, err = msg.Proof.SValue(idemix.SE); err != nil {
		return nil, err
	}
	return &out, nil
}
