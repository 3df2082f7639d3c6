// Package prove drives the prover side of an idemix show-proof on a card.
package prove

import (
	"fmt"
	"sort"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/internal/params"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/math/codec"
	"github.com/taurusgroup/idemix-card/pkg/protocol"
)

const protocolID = "idemix/prove"

// Prover is the role of the card holder during a show-proof.
type Prover interface {
	// BuildProof proves possession of the credential described by spec, bound to the verifier's nonce.
	BuildProof(nonce *saferith.Nat, spec *idemix.ProofSpec) (*idemix.Proof, error)
}

// plan is everything a run needs, computed before anything is sent.
type plan struct {
	predicate  *idemix.CLPredicate
	attributes []attribute
	disclosure []byte
}

type attribute struct {
	idemix.AttributeStructure
	identifier *idemix.Identifier
}

// BuildProof runs a show-proof of the first predicate of spec, which must be a CLPredicate.
// The credential structure it refers to is resolved through store.
func BuildProof(r *protocol.Runner, store idemix.StructureStore, sessionID uint16, nonce *saferith.Nat, spec *idemix.ProofSpec) (*idemix.Proof, error) {
	if spec == nil {
		return nil, fmt.Errorf("prove: nil proof spec: %w", codec.ErrInvalidArgument)
	}
	if nonce == nil {
		return nil, fmt.Errorf("prove: nil nonce: %w", codec.ErrInvalidArgument)
	}
	ctx, err := protocol.NewContext(sessionID, spec.Context, spec.Params)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	p, err := newPlan(store, spec)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}

	r = r.For(protocolID, ctx)
	proof, err := run(r, ctx, p, nonce)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	r.Log.Info().
		Int("revealed", len(p.disclosure)).
		Int("hidden", len(p.attributes)-len(p.disclosure)).
		Msg("proof built")
	return proof, nil
}

func newPlan(store idemix.StructureStore, spec *idemix.ProofSpec) (*plan, error) {
	if len(spec.Predicates) == 0 {
		return nil, fmt.Errorf("no predicate: %w", protocol.ErrUnsupportedPredicate)
	}
	predicate, ok := spec.Predicates[0].(*idemix.CLPredicate)
	if !ok || predicate == nil {
		return nil, fmt.Errorf("%T: %w", spec.Predicates[0], protocol.ErrUnsupportedPredicate)
	}

	structure, err := store.CredentialStructure(predicate.CredStructLocation)
	if err != nil {
		return nil, err
	}
	if err = structure.Validate(); err != nil {
		return nil, err
	}

	p := &plan{predicate: predicate}
	for _, a := range structure.Attributes {
		id, err := predicate.Identifier(a.Name)
		if err != nil {
			return nil, err
		}
		if a.KeyIndex > params.MaxKeyIndex {
			return nil, fmt.Errorf("attribute %q: key index %d: %w", a.Name, a.KeyIndex, codec.ErrInvalidArgument)
		}
		p.attributes = append(p.attributes, attribute{AttributeStructure: a, identifier: id})
	}
	p.disclosure = disclosure(p.attributes)

	if err = p.checkNames(); err != nil {
		return nil, err
	}
	return p, nil
}

// disclosure returns the key indices of the revealed attributes, one byte each, in ascending order.
func disclosure(attributes []attribute) []byte {
	d := make([]byte, 0, len(attributes))
	for _, a := range attributes {
		if a.identifier.Revealed {
			d = append(d, byte(a.KeyIndex))
		}
	}
	sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })
	return d
}

// checkNames fails unless every identifier name is unique within the proof,
// and distinct from the randomized signature and master secret names.
func (p *plan) checkNames() error {
	names := map[string]bool{idemix.MasterSecretName: true}
	if names[p.predicate.TempCredName] {
		return fmt.Errorf("%q: %w", p.predicate.TempCredName, protocol.ErrDuplicateIdentifier)
	}
	names[p.predicate.TempCredName] = true
	for _, a := range p.attributes {
		if names[a.identifier.Name] {
			return fmt.Errorf("%q: %w", a.identifier.Name, protocol.ErrDuplicateIdentifier)
		}
		names[a.identifier.Name] = true
	}
	return nil
}

func run(r *protocol.Runner, ctx *protocol.Context, p *plan, nonce *saferith.Nat) (*idemix.Proof, error) {
	b := newBuilder()
	p1, p2 := ctx.P1P2()
	if err := r.Send(protocol.Step{
		Name:        "PROVE_CREDENTIAL",
		Instruction: apdu.InsProveCredential,
		P1:          p1,
		P2:          p2,
	}, ctx.Value, ctx.Params.LH); err != nil {
		return nil, err
	}

	if _, _, err := r.Do(protocol.Step{
		Name:        "PROVE_SELECTION",
		Instruction: apdu.InsProveSelection,
		Data:        p.disclosure,
	}); err != nil {
		return nil, err
	}

	challenge, err := r.Query(protocol.Step{Name: "PROVE_NONCE", Instruction: apdu.InsProveNonce}, nonce, ctx.Params.LPhi)
	if err != nil {
		return nil, err
	}

	aPrime, err := r.Fetch(protocol.Step{Name: "PROVE_SIGNATURE A'", Instruction: apdu.InsProveSignature, P1: apdu.P1SignatureA})
	if err != nil {
		return nil, err
	}
	eHat, err := r.Fetch(protocol.Step{Name: "PROVE_SIGNATURE e^", Instruction: apdu.InsProveSignature, P1: apdu.P1SignatureE})
	if err != nil {
		return nil, err
	}
	vHat, err := r.Fetch(protocol.Step{Name: "PROVE_SIGNATURE v^", Instruction: apdu.InsProveSignature, P1: apdu.P1SignatureV})
	if err != nil {
		return nil, err
	}
	if err = b.common(p.predicate.TempCredName, aPrime); err != nil {
		return nil, err
	}
	if err = b.response(p.predicate.TempCredName, idemix.SValue{CL: &idemix.CLResponse{E: eHat, V: vHat}}); err != nil {
		return nil, err
	}

	master, err := r.Fetch(protocol.Step{Name: "PROVE_RESPONSE[0]", Instruction: apdu.InsProveResponse, P1: 0})
	if err != nil {
		return nil, err
	}
	if err = b.response(idemix.MasterSecretName, idemix.SValue{Value: master}); err != nil {
		return nil, err
	}

	for _, a := range p.attributes {
		i := byte(a.KeyIndex)
		if a.identifier.Revealed {
			v, err := r.Fetch(protocol.Step{
				Name:        fmt.Sprintf("PROVE_ATTRIBUTE[%d]", i),
				Instruction: apdu.InsProveAttribute,
				P1:          i,
			})
			if err != nil {
				return nil, err
			}
			if err = b.common(a.identifier.Name, v); err != nil {
				return nil, err
			}
			continue
		}
		s, err := r.Fetch(protocol.Step{
			Name:        fmt.Sprintf("PROVE_RESPONSE[%d]", i),
			Instruction: apdu.InsProveResponse,
			P1:          i,
		})
		if err != nil {
			return nil, err
		}
		if err = b.response(a.identifier.Name, idemix.SValue{Value: s}); err != nil {
			return nil, err
		}
	}
	return b.build(challenge), nil
}
