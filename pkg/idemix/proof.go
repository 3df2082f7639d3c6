package idemix

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/idemix-card/internal/proto"
)

// CLResponse holds the responses (ê, v̂) of a randomized CL signature.
type CLResponse struct {
	E, V *saferith.Nat
}

// SValue is a response of a zero-knowledge proof for a hidden quantity.
// Exactly one of Value or CL is set.
type SValue struct {
	Value *saferith.Nat
	CL    *CLResponse
}

// Proof is an idemix show-proof, or the proof embedded in an issuance Message.
type Proof struct {
	Challenge *saferith.Nat
	// SValues maps identifier names to their responses.
	SValues map[string]SValue
	// CommonValues maps names to values revealed in the clear.
	CommonValues map[string]*saferith.Nat
}

// NewProof returns a Proof over the given maps. The maps are not copied.
func NewProof(challenge *saferith.Nat, sValues map[string]SValue, common map[string]*saferith.Nat) *Proof {
	if sValues == nil {
		sValues = map[string]SValue{}
	}
	if common == nil {
		common = map[string]*saferith.Nat{}
	}
	return &Proof{
		Challenge:    challenge,
		SValues:      sValues,
		CommonValues: common,
	}
}

// SValue returns the single response stored under name.
func (p *Proof) SValue(name string) (*saferith.Nat, error) {
	s, ok := p.SValues[name]
	if !ok || s.Value == nil {
		return nil, fmt.Errorf("proof: missing s-value %s", name)
	}
	return s.Value, nil
}

// CommonValue returns the revealed value stored under name.
func (p *Proof) CommonValue(name string) (*saferith.Nat, error) {
	v, ok := p.CommonValues[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("proof: missing common value %s", name)
	}
	return v, nil
}

type sValueMarshal struct {
	Value *proto.NatMarshaller `cbor:",omitempty"`
	E     *proto.NatMarshaller `cbor:",omitempty"`
	V     *proto.NatMarshaller `cbor:",omitempty"`
}

type proofMarshal struct {
	Challenge    proto.NatMarshaller
	SValues      map[string]sValueMarshal
	CommonValues map[string]proto.NatMarshaller
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Proof) MarshalBinary() ([]byte, error) {
	if p.Challenge == nil {
		return nil, errors.New("proof: nil challenge")
	}
	sValues := make(map[string]sValueMarshal, len(p.SValues))
	for name, s := range p.SValues {
		switch {
		case s.Value != nil:
			sValues[name] = sValueMarshal{Value: &proto.NatMarshaller{Nat: s.Value}}
		case s.CL != nil && s.CL.E != nil && s.CL.V != nil:
			sValues[name] = sValueMarshal{
				E: &proto.NatMarshaller{Nat: s.CL.E},
				V: &proto.NatMarshaller{Nat: s.CL.V},
			}
		default:
			return nil, fmt.Errorf("proof: empty s-value %s", name)
		}
	}
	return cbor.Marshal(&proofMarshal{
		Challenge:    proto.NatMarshaller{Nat: p.Challenge},
		SValues:      sValues,
		CommonValues: proto.NatMap(p.CommonValues),
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Proof) UnmarshalBinary(data []byte) error {
	var pm proofMarshal
	if err := cbor.Unmarshal(data, &pm); err != nil {
		return fmt.Errorf("proof: %w", err)
	}
	if pm.Challenge.Nat == nil {
		return errors.New("proof: missing challenge")
	}
	sValues := make(map[string]SValue, len(pm.SValues))
	for name, s := range pm.SValues {
		switch {
		case s.Value != nil:
			sValues[name] = SValue{Value: s.Value.Nat}
		case s.E != nil && s.V != nil:
			sValues[name] = SValue{CL: &CLResponse{E: s.E.Nat, V: s.V.Nat}}
		default:
			return fmt.Errorf("proof: empty s-value %s", name)
		}
	}
	*p = *NewProof(pm.Challenge.Nat, sValues, proto.FromNatMap(pm.CommonValues))
	return nil
}

// PredicateType identifies the kind of statement a predicate proves.
type PredicateType uint8

const (
	// PredicateCL proves possession of a CL signature and discloses some of its attributes.
	PredicateCL PredicateType = iota + 1
	PredicateCommitment
	PredicateRepresentation
	PredicateInequality
	PredicateDomainNym
)

func (t PredicateType) String() string {
	switch t {
	case PredicateCL:
		return "CL"
	case PredicateCommitment:
		return "commitment"
	case PredicateRepresentation:
		return "representation"
	case PredicateInequality:
		return "inequality"
	case PredicateDomainNym:
		return "domain pseudonym"
	default:
		return fmt.Sprintf("predicate(%d)", uint8(t))
	}
}

// Predicate is a statement about the attributes of one credential.
type Predicate interface {
	Type() PredicateType
}

// Identifier links an attribute of a credential to a name inside a proof.
type Identifier struct {
	Name     string
	Revealed bool
}

// CLPredicate proves knowledge of a CL signature on a credential.
type CLPredicate struct {
	// TempCredName names the randomized signature inside the proof.
	TempCredName string
	// CredStructLocation is resolved through a StructureStore.
	CredStructLocation string
	// Identifiers maps attribute names to their identifiers.
	Identifiers map[string]*Identifier
}

// Type implements Predicate.
func (*CLPredicate) Type() PredicateType { return PredicateCL }

// Identifier returns the identifier for an attribute.
func (p *CLPredicate) Identifier(attribute string) (*Identifier, error) {
	id, ok := p.Identifiers[attribute]
	if !ok || id == nil {
		return nil, fmt.Errorf("predicate %s: no identifier for attribute %s", p.TempCredName, attribute)
	}
	return id, nil
}

// ProofSpec describes what a show-proof must demonstrate.
type ProofSpec struct {
	Params *SystemParameters
	// Context binds the proof to a verifier session.
	Context    *saferith.Nat
	Predicates []Predicate
}
