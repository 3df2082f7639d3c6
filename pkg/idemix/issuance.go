package idemix

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/idemix-card/internal/proto"
)

// Names of values shared between the issuance and proof protocols.
const (
	// MasterSecretName identifies the response for the card's master secret m₀.
	MasterSecretName = "master_secret"
	// VHatPrime identifies the response v̂' proving correct construction of U.
	VHatPrime = "vHatPrime"
	// SE identifies the response sₑ proving correct construction of the signature.
	SE = "s_e"
)

// IssuerPublicKey is the CL public key (n, Z, S, R₀, …, Rₗ) of an issuer.
type IssuerPublicKey struct {
	N, Z, S *saferith.Nat
	// R holds one base per attribute, R[0] being the base of the master secret.
	R []*saferith.Nat
	// Params are the system parameters the key was generated for.
	Params *SystemParameters
}

// Validate checks that the key has every element and at least bases R₀, …, Rₗ.
func (pk *IssuerPublicKey) Validate(attributes int) error {
	if pk == nil {
		return errors.New("public key: nil")
	}
	if pk.N == nil || pk.Z == nil || pk.S == nil {
		return errors.New("public key: missing n, Z or S")
	}
	if len(pk.R) < attributes+1 {
		return fmt.Errorf("public key: %d bases for %d attributes", len(pk.R), attributes)
	}
	for i := 0; i <= attributes; i++ {
		if pk.R[i] == nil {
			return fmt.Errorf("public key: R[%d] is nil", i)
		}
	}
	return pk.Params.Validate()
}

// IssuanceSpec binds a public key and a credential structure to an issuance context.
type IssuanceSpec struct {
	PublicKey           *IssuerPublicKey
	CredentialStructure *CredentialStructure
	// Context is the value binding this issuance transaction.
	Context *saferith.Nat
}

// Validate checks the specification before anything is sent to the card.
func (s *IssuanceSpec) Validate() error {
	if s == nil {
		return errors.New("issuance spec: nil")
	}
	if s.Context == nil {
		return errors.New("issuance spec: nil context")
	}
	if err := s.CredentialStructure.Validate(); err != nil {
		return fmt.Errorf("issuance spec: %w", err)
	}
	if err := s.PublicKey.Validate(s.CredentialStructure.Len()); err != nil {
		return fmt.Errorf("issuance spec: %w", err)
	}
	return nil
}

// Values maps attribute names to their values.
type Values map[string]*saferith.Nat

// IssuanceValue names a value carried by an issuance Message.
type IssuanceValue string

const (
	CapU           IssuanceValue = "capU"
	NonceRecipient IssuanceValue = "nonce_recipient"
	CapA           IssuanceValue = "capA"
	E              IssuanceValue = "e"
	VPrimePrime    IssuanceValue = "vPrimePrime"
)

// Message is a flow of the issuance protocol, exchanged between recipient and issuer.
type Message struct {
	Values map[IssuanceValue]*saferith.Nat
	Proof  *Proof
}

// NewMessage returns a Message with the given values and proof.
func NewMessage(values map[IssuanceValue]*saferith.Nat, proof *Proof) *Message {
	return &Message{Values: values, Proof: proof}
}

// Value returns the value stored under name, or an error if it is absent.
func (m *Message) Value(name IssuanceValue) (*saferith.Nat, error) {
	if m == nil {
		return nil, errors.New("message: nil")
	}
	v, ok := m.Values[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("message: missing value %s", name)
	}
	return v, nil
}

type messageMarshal struct {
	Values map[IssuanceValue]proto.NatMarshaller
	Proof  cbor.RawMessage `cbor:",omitempty"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	mm := messageMarshal{Values: proto.NatMap(m.Values)}
	if m.Proof != nil {
		proof, err := m.Proof.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("message: %w", err)
		}
		mm.Proof = proof
	}
	return cbor.Marshal(&mm)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Message) UnmarshalBinary(data []byte) error {
	var mm messageMarshal
	if err := cbor.Unmarshal(data, &mm); err != nil {
		return fmt.Errorf("message: %w", err)
	}
	var proof *Proof
	if len(mm.Proof) > 0 {
		proof = &Proof{}
		if err := proof.UnmarshalBinary(mm.Proof); err != nil {
			return fmt.Errorf("message: %w", err)
		}
	}
	*m = Message{
		Values: proto.FromNatMap(mm.Values),
		Proof:  proof,
	}
	return nil
}
