package main

import (
	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/protocols/smartcard"
)

// Issue runs a complete issuance of a credential with the given values.
// issuer answers the recipient's first message with the signature message.
func Issue(s *smartcard.Service, spec *idemix.IssuanceSpec, values idemix.Values, nonce *saferith.Nat, issuer func(*idemix.Message) (*idemix.Message, error)) error {
	session, err := s.SetIssuanceSpecification(spec)
	if err != nil {
		return err
	}
	if err = s.GenerateMasterSecret(); err != nil {
		return err
	}
	if err = s.SetAttributes(session, values); err != nil {
		return err
	}
	msg1, err := s.Round1(session, idemix.NewMessage(map[idemix.IssuanceValue]*saferith.Nat{
		idemix.NonceRecipient: nonce,
	}, nil))
	if err != nil {
		return err
	}
	msg2, err := issuer(msg1)
	if err != nil {
		return err
	}
	return s.Round3(session, msg2)
}

// Prove builds a proof revealing the attributes in reveal and hiding the others.
func Prove(s *smartcard.Service, location string, structure *idemix.CredentialStructure, reveal map[string]bool, nonce *saferith.Nat) (*idemix.Proof, error) {
	identifiers := make(map[string]*idemix.Identifier, structure.Len())
	for _, a := range structure.Attributes {
		identifiers[a.Name] = &idemix.Identifier{Name: a.Name, Revealed: reveal[a.Name]}
	}
	return s.BuildProof(nonce, &idemix.ProofSpec{
		Params:  idemix.DefaultSystemParameters(),
		Context: new(saferith.Nat).SetUint64(2),
		Predicates: []idemix.Predicate{&idemix.CLPredicate{
			TempCredName:       "credential",
			CredStructLocation: location,
			Identifiers:        identifiers,
		}},
	})
}
