package issuance

import (
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/protocol"
)

// Round1 sends the issuer's nonce n₁ and returns the recipient's message:
// the commitment U, the proof (c, v̂', s_A) of its construction and a fresh nonce n₂.
func Round1(r *protocol.Runner, s *Session, msg *idemix.Message) (*idemix.Message, error) {
	if err := s.expect(AttributesSet); err != nil {
		return nil, err
	}
	nonce, err := msg.Value(idemix.NonceRecipient)
	if err != nil {
		return nil, fmt.Errorf("issuance: round 1: %w", err)
	}

	r = r.For(protocolID, s.ctx)
	out, err := round1(r, s.ctx, nonce)
	if err != nil {
		return nil, s.abort(fmt.Errorf("issuance: round 1: %w", err))
	}
	s.state = Round1Sent
	r.Log.Debug().Msg("round 1 done")
	return out, nil
}

func round1(r *protocol.Runner, ctx *protocol.Context, nonce *saferith.Nat) (*idemix.Message, error) {
	capU, err := r.Query(protocol.Step{Name: "ISSUE_NONCE_1", Instruction: apdu.InsIssueNonce1}, nonce, ctx.Params.LPhi)
	if err != nil {
		return nil, err
	}

	challenge, err := r.Fetch(protocol.Step{Name: "ISSUE_PROOF_U c", Instruction: apdu.InsIssueProofU, P1: apdu.P1ProofUChallenge})
	if err != nil {
		return nil, err
	}
	vHatPrime, err := r.Fetch(protocol.Step{Name: "ISSUE_PROOF_U v^'", Instruction: apdu.InsIssueProofU, P1: apdu.P1ProofUVPrimeHat})
	if err != nil {
		return nil, err
	}
	sA, err := r.Fetch(protocol.Step{Name: "ISSUE_PROOF_U s_A", Instruction: apdu.InsIssueProofU, P1: apdu.P1ProofUMasterSecret})
	if err != nil {
		return nil, err
	}

	nonce2, err := r.Fetch(protocol.Step{Name: "ISSUE_NONCE_2", Instruction: apdu.InsIssueNonce2})
	if err != nil {
		return nil, err
	}

	proof := idemix.NewProof(challenge,
		map[string]idemix.SValue{idemix.MasterSecretName: {Value: sA}},
		map[string]*saferith.Nat{idemix.VHatPrime: vHatPrime},
	)
	return idemix.NewMessage(map[idemix.IssuanceValue]*saferith.Nat{
		idemix.CapU:           capU,
		idemix.NonceRecipient: nonce2,
	}, proof), nil
}
