// Package smartcard exposes an idemix card as an issuance Recipient and a Prover.
package smartcard

import (
	"github.com/cronokirby/saferith"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/idemix-card/internal/params"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/protocol"
	"github.com/taurusgroup/idemix-card/pkg/transport"
	"github.com/taurusgroup/idemix-card/protocols/issuance"
	"github.com/taurusgroup/idemix-card/protocols/prove"
)

var (
	_ issuance.Recipient = (*Service)(nil)
	_ prove.Prover       = (*Service)(nil)
)

// Service runs idemix protocols against one card.
// Runs must not overlap, a Service is used by one goroutine at a time.
type Service struct {
	tr        *transport.Transport
	runner    *protocol.Runner
	store     idemix.StructureStore
	sessionID uint16
	log       zerolog.Logger
	aid       []byte
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger of the service and of its transport.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithStore sets the store resolving credential structures during proofs.
func WithStore(store idemix.StructureStore) Option {
	return func(s *Service) { s.store = store }
}

// WithSessionID overrides the session id sent when a run starts.
func WithSessionID(id uint16) Option {
	return func(s *Service) { s.sessionID = id }
}

// WithAID overrides the application identifier of the applet.
func WithAID(aid []byte) Option {
	return func(s *Service) { s.aid = aid }
}

// New returns a Service over ch. Call Open before running a protocol.
func New(ch transport.Channel, opts ...Option) *Service {
	s := &Service{
		store:     idemix.NewMapStore(),
		sessionID: params.SessionID,
		log:       zerolog.Nop(),
		aid:       params.AppletID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tr = transport.New(ch, transport.WithLogger(s.log), transport.WithAID(s.aid))
	s.runner = protocol.NewRunner(s.tr, s.log)
	return s
}

// Open connects to the card and selects the idemix applet.
func (s *Service) Open() error {
	return s.tr.Open()
}

// Close releases the channel.
func (s *Service) Close() error {
	return s.tr.Close()
}

// VerifyPIN presents the card holder's PIN.
func (s *Service) VerifyPIN(pin []byte) error {
	return s.tr.VerifyPIN(pin)
}

// Transcript returns a digest of all frames exchanged with the card.
func (s *Service) Transcript() []byte {
	return s.tr.Transcript()
}

// Store returns the store resolving credential structures.
func (s *Service) Store() idemix.StructureStore {
	return s.store
}

// SetIssuanceSpecification implements issuance.Recipient.
func (s *Service) SetIssuanceSpecification(spec *idemix.IssuanceSpec) (*issuance.Session, error) {
	return issuance.Start(s.runner, s.sessionID, spec)
}

// GenerateMasterSecret implements issuance.Recipient.
func (s *Service) GenerateMasterSecret() error {
	return issuance.GenerateMasterSecret(s.runner)
}

// SetAttributes implements issuance.Recipient.
func (s *Service) SetAttributes(session *issuance.Session, values idemix.Values) error {
	return issuance.SetAttributes(s.runner, session, values)
}

// Round1 implements issuance.Recipient.
func (s *Service) Round1(session *issuance.Session, msg *idemix.Message) (*idemix.Message, error) {
	return issuance.Round1(s.runner, session, msg)
}

// Round3 implements issuance.Recipient.
func (s *Service) Round3(session *issuance.Session, msg *idemix.Message) error {
	return issuance.Round3(s.runner, session, msg)
}

// BuildProof implements prove.Prover.
func (s *Service) BuildProof(nonce *saferith.Nat, spec *idemix.ProofSpec) (*idemix.Proof, error) {
	return prove.BuildProof(s.runner, s.store, s.sessionID, nonce, spec)
}
