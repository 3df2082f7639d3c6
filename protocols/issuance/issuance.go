// Package issuance drives the recipient side of an idemix issuance on a card.
//
// A run is Start, SetAttributes, Round1 and Round3, in this order, on the same Session.
// GenerateMasterSecret may be called at any time before Round1.
package issuance

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/internal/params"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/protocol"
)

const protocolID = "idemix/issuance"

// Recipient is the role of the card holder during an issuance.
type Recipient interface {
	// SetIssuanceSpecification starts a run: it sets the context and the issuer public key.
	SetIssuanceSpecification(spec *idemix.IssuanceSpec) (*Session, error)
	// GenerateMasterSecret asks the card to generate its master secret, if it has none yet.
	GenerateMasterSecret() error
	// SetAttributes transfers the attribute values of the credential.
	SetAttributes(s *Session, values idemix.Values) error
	// Round1 answers the issuer's first message with the commitment U and its proof.
	Round1(s *Session, msg *idemix.Message) (*idemix.Message, error)
	// Round3 transfers the signature and its proof, which the card verifies.
	Round3(s *Session, msg *idemix.Message) error
}

// State is the progress of a Session.
type State uint8

const (
	Idle State = iota
	ContextSet
	PublicKeySet
	AttributesSet
	Round1Sent
	SignatureReceived
	// Terminal is reached when the run completed or failed.
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ContextSet:
		return "context set"
	case PublicKeySet:
		return "public key set"
	case AttributesSet:
		return "attributes set"
	case Round1Sent:
		return "round 1 sent"
	case SignatureReceived:
		return "signature received"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Session is one issuance run against a card.
type Session struct {
	ctx        *protocol.Context
	attributes []idemix.AttributeStructure
	state      State
	// err is the error that moved the session to Terminal, if any.
	err error
}

// State returns the progress of the run.
func (s *Session) State() State {
	return s.state
}

// Context returns the context fixed at the start of the run.
func (s *Session) Context() *protocol.Context {
	return s.ctx
}

// Err returns the error that aborted the run, or nil.
func (s *Session) Err() error {
	return s.err
}

// expect fails unless the session is in state want. Nothing is sent in that case.
func (s *Session) expect(want State) error {
	if s == nil {
		return fmt.Errorf("issuance: nil session: %w", protocol.ErrInvalidState)
	}
	if s.state != want {
		return fmt.Errorf("issuance: session is %s, expected %s: %w", s.state, want, protocol.ErrInvalidState)
	}
	return nil
}

// abort moves the session to Terminal.
func (s *Session) abort(err error) error {
	s.state = Terminal
	s.err = err
	return err
}

// Start sets the issuance context and the issuer public key on the card.
// The bit lengths of the run are those of the public key.
func Start(r *protocol.Runner, sessionID uint16, spec *idemix.IssuanceSpec) (*Session, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("issuance: %w", err)
	}
	ctx, err := protocol.NewContext(sessionID, spec.Context, spec.PublicKey.Params)
	if err != nil {
		return nil, fmt.Errorf("issuance: %w", err)
	}
	s := &Session{
		ctx:        ctx,
		attributes: append([]idemix.AttributeStructure(nil), spec.CredentialStructure.Attributes...),
		state:      Idle,
	}
	r = r.For(protocolID, ctx)

	p1, p2 := ctx.P1P2()
	err = r.Send(protocol.Step{
		Name:        "ISSUE_CREDENTIAL",
		Instruction: apdu.InsIssueCredential,
		P1:          p1,
		P2:          p2,
	}, ctx.Value, ctx.Params.LH)
	if errors.Is(err, protocol.ErrConditionNotSatisfied) {
		return nil, s.abort(fmt.Errorf("issuance: credential already issued: %w", err))
	}
	if err != nil {
		return nil, s.abort(fmt.Errorf("issuance: start: %w", err))
	}
	s.state = ContextSet
	r.Log.Debug().Msg("context set")

	if err = setPublicKey(r, ctx, spec.PublicKey, spec.CredentialStructure.Len()+1); err != nil {
		return nil, s.abort(fmt.Errorf("issuance: public key: %w", err))
	}
	s.state = PublicKeySet
	r.Log.Debug().Msg("public key set")
	return s, nil
}

type keyElement struct {
	step protocol.Step
	x    *saferith.Nat
}

// setPublicKey sends n, Z, S, R₀, …, R_{bases-1}, each on lₙ bits.
// Cards lacking one of these commands are tolerated.
func setPublicKey(r *protocol.Runner, ctx *protocol.Context, pk *idemix.IssuerPublicKey, bases int) error {
	if bases-1 > params.MaxKeyIndex {
		return fmt.Errorf("%d bases do not fit in P1", bases)
	}
	elements := []keyElement{
		{protocol.Step{Name: "ISSUE_PUBLIC_KEY_N", Instruction: apdu.InsIssuePublicKeyN}, pk.N},
		{protocol.Step{Name: "ISSUE_PUBLIC_KEY_Z", Instruction: apdu.InsIssuePublicKeyZ}, pk.Z},
		{protocol.Step{Name: "ISSUE_PUBLIC_KEY_S", Instruction: apdu.InsIssuePublicKeyS}, pk.S},
	}
	for i := 0; i < bases; i++ {
		elements = append(elements, keyElement{protocol.Step{
			Name:        fmt.Sprintf("ISSUE_PUBLIC_KEY_R[%d]", i),
			Instruction: apdu.InsIssuePublicKeyR,
			P1:          byte(i),
		}, pk.R[i]})
	}
	for _, e := range elements {
		e.step.Tolerate = []apdu.Outcome{apdu.InstructionNotSupported}
		if err := r.Send(e.step, e.x, ctx.Params.Ln); err != nil {
			return err
		}
	}
	return nil
}
