package prove_test

import (
	"context"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/idemix-card/internal/params"
	"github.com/taurusgroup/idemix-card/internal/test"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/math/codec"
	"github.com/taurusgroup/idemix-card/pkg/protocol"
	"github.com/taurusgroup/idemix-card/pkg/transport"
	"github.com/taurusgroup/idemix-card/protocols/prove"
)

const location = "http://example.org/credentials/identity.xml"

func nat(x uint64) *saferith.Nat { return new(saferith.Nat).SetUint64(x) }

func newStore(attributes ...idemix.AttributeStructure) *idemix.MapStore {
	store := idemix.NewMapStore()
	store.Add(location, &idemix.CredentialStructure{Attributes: attributes})
	return store
}

func defaultStore() *idemix.MapStore {
	return newStore(
		idemix.AttributeStructure{Name: "age", KeyIndex: 1},
		idemix.AttributeStructure{Name: "country", KeyIndex: 2},
	)
}

func newSpec(revealAge, revealCountry bool) *idemix.ProofSpec {
	return &idemix.ProofSpec{
		Params:  idemix.DefaultSystemParameters(),
		Context: nat(99),
		Predicates: []idemix.Predicate{&idemix.CLPredicate{
			TempCredName:       "cred",
			CredStructLocation: location,
			Identifiers: map[string]*idemix.Identifier{
				"age":     {Name: "id_age", Revealed: revealAge},
				"country": {Name: "id_country", Revealed: revealCountry},
			},
		}},
	}
}

func issuedCard() *test.Card {
	card := test.NewCard()
	card.Issued = true
	card.Attributes[1] = nat(42)
	card.Attributes[2] = nat(31)
	card.Responses[2] = nat(777)
	return card
}

func buildProof(t *testing.T, card *test.Card, store idemix.StructureStore, spec *idemix.ProofSpec) (*idemix.Proof, error) {
	t.Helper()
	var (
		proof    *idemix.Proof
		proveErr error
	)
	err := test.Run(context.Background(), card, func(n *test.Network) error {
		tr := transport.New(n)
		if err := tr.Open(); err != nil {
			return err
		}
		r := protocol.NewRunner(tr, zerolog.Nop())
		proof, proveErr = prove.BuildProof(r, store, params.SessionID, nat(1234), spec)
		return nil
	})
	require.NoError(t, err)
	return proof, proveErr
}

func TestBuildProof(t *testing.T) {
	card := issuedCard()
	proof, err := buildProof(t, card, defaultStore(), newSpec(true, false))
	require.NoError(t, err)

	assert.Equal(t, card.ProofChallenge.Bytes(), proof.Challenge.Bytes())

	// among attribute identifiers only the revealed one is a common value
	assert.Contains(t, proof.CommonValues, "id_age")
	assert.NotContains(t, proof.CommonValues, "id_country")
	assert.Len(t, proof.CommonValues, 2)
	aPrime, err := proof.CommonValue("cred")
	require.NoError(t, err)
	assert.Equal(t, card.APrime.Bytes(), aPrime.Bytes())
	age, err := proof.CommonValue("id_age")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), age.Big().Uint64())

	assert.Len(t, proof.SValues, 3)
	master, err := proof.SValue(idemix.MasterSecretName)
	require.NoError(t, err)
	assert.Equal(t, card.MasterResponse.Bytes(), master.Bytes())
	country, err := proof.SValue("id_country")
	require.NoError(t, err)
	assert.Equal(t, uint64(777), country.Big().Uint64())
	require.Contains(t, proof.SValues, "cred")
	cl := proof.SValues["cred"].CL
	require.NotNil(t, cl)
	assert.Equal(t, card.EHat.Bytes(), cl.E.Bytes())
	assert.Equal(t, card.VHat.Bytes(), cl.V.Bytes())

	p := idemix.DefaultSystemParameters()
	start := card.Commands(apdu.InsProveCredential)
	require.Len(t, start, 1)
	assert.Equal(t, []byte{0x00, 0x01}, []byte{start[0].P1, start[0].P2})
	assert.Len(t, start[0].Data, codec.ByteLen(p.LH))

	selection := card.Commands(apdu.InsProveSelection)
	require.Len(t, selection, 1)
	assert.Equal(t, []byte{1}, selection[0].Data)

	nonce := card.Commands(apdu.InsProveNonce)
	require.Len(t, nonce, 1)
	assert.Len(t, nonce[0].Data, codec.ByteLen(p.LPhi))

	attributes := card.Commands(apdu.InsProveAttribute)
	require.Len(t, attributes, 1)
	assert.Equal(t, byte(1), attributes[0].P1)
	responses := card.Commands(apdu.InsProveResponse)
	require.Len(t, responses, 2)
	assert.Equal(t, byte(0), responses[0].P1)
	assert.Equal(t, byte(2), responses[1].P1)
}

func TestBuildProofDisclosureOrder(t *testing.T) {
	card := issuedCard()
	card.Attributes[9] = nat(9)
	card.Attributes[4] = nat(4)
	store := newStore(
		idemix.AttributeStructure{Name: "a", KeyIndex: 9},
		idemix.AttributeStructure{Name: "b", KeyIndex: 2},
		idemix.AttributeStructure{Name: "c", KeyIndex: 4},
	)
	spec := newSpec(false, false)
	spec.Predicates[0].(*idemix.CLPredicate).Identifiers = map[string]*idemix.Identifier{
		"a": {Name: "a", Revealed: true},
		"b": {Name: "b"},
		"c": {Name: "c", Revealed: true},
	}
	proof, err := buildProof(t, card, store, spec)
	require.NoError(t, err)

	selection := card.Commands(apdu.InsProveSelection)
	require.Len(t, selection, 1)
	assert.Equal(t, []byte{4, 9}, selection[0].Data)

	// retrieval follows structure order
	attributes := card.Commands(apdu.InsProveAttribute)
	require.Len(t, attributes, 2)
	assert.Equal(t, byte(9), attributes[0].P1)
	assert.Equal(t, byte(4), attributes[1].P1)
	assert.Contains(t, proof.SValues, "b")
}

func TestBuildProofNothingRevealed(t *testing.T) {
	card := issuedCard()
	proof, err := buildProof(t, card, defaultStore(), newSpec(false, false))
	require.NoError(t, err)
	selection := card.Commands(apdu.InsProveSelection)
	require.Len(t, selection, 1)
	assert.Empty(t, selection[0].Data)
	assert.Len(t, proof.CommonValues, 1)
	assert.Len(t, proof.SValues, 4)
}

type inequality struct{}

func (inequality) Type() idemix.PredicateType { return idemix.PredicateInequality }

func TestBuildProofRejectedBeforeTransmission(t *testing.T) {
	duplicate := newSpec(true, false)
	duplicate.Predicates[0].(*idemix.CLPredicate).Identifiers["country"].Name = "id_age"
	masterName := newSpec(true, false)
	masterName.Predicates[0].(*idemix.CLPredicate).Identifiers["age"].Name = idemix.MasterSecretName
	inequalitySpec := newSpec(true, false)
	inequalitySpec.Predicates = []idemix.Predicate{inequality{}}
	noPredicate := newSpec(true, false)
	noPredicate.Predicates = nil

	tests := []struct {
		name  string
		store idemix.StructureStore
		spec  *idemix.ProofSpec
		err   error
	}{
		{"unsupported predicate", defaultStore(), inequalitySpec, protocol.ErrUnsupportedPredicate},
		{"no predicate", defaultStore(), noPredicate, protocol.ErrUnsupportedPredicate},
		{"duplicate identifier", defaultStore(), duplicate, protocol.ErrDuplicateIdentifier},
		{"identifier named after master secret", defaultStore(), masterName, protocol.ErrDuplicateIdentifier},
		{"unknown structure", idemix.NewMapStore(), newSpec(true, false), idemix.ErrStructureNotFound},
		{
			"key index too large",
			newStore(
				idemix.AttributeStructure{Name: "age", KeyIndex: 256},
				idemix.AttributeStructure{Name: "country", KeyIndex: 2},
			),
			newSpec(true, false),
			codec.ErrInvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := issuedCard()
			proof, err := buildProof(t, card, tt.store, tt.spec)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, proof)
			// only SELECT reached the card
			assert.Len(t, card.Received, 1)
		})
	}
}

func TestBuildProofNotFound(t *testing.T) {
	card := test.NewCard()
	proof, err := buildProof(t, card, defaultStore(), newSpec(true, false))
	assert.Nil(t, proof)
	assert.ErrorIs(t, err, protocol.ErrNotFound)
	var perr protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, apdu.SWNotFound, perr.Status)
	assert.Empty(t, card.Commands(apdu.InsProveSelection))
}

func TestBuildProofUnexpectedStatus(t *testing.T) {
	steps := []struct {
		ins apdu.Instruction
		p1  byte
	}{
		{apdu.InsProveCredential, 0},
		{apdu.InsProveSelection, 0},
		{apdu.InsProveNonce, 0},
		{apdu.InsProveSignature, apdu.P1SignatureA},
		{apdu.InsProveSignature, apdu.P1SignatureE},
		{apdu.InsProveSignature, apdu.P1SignatureV},
		{apdu.InsProveResponse, 0},
		{apdu.InsProveAttribute, 1},
		{apdu.InsProveResponse, 2},
	}
	for _, step := range steps {
		card := issuedCard()
		card.Fail(step.ins, step.p1, 0x6400)
		proof, err := buildProof(t, card, defaultStore(), newSpec(true, false))
		assert.Nil(t, proof)
		assert.ErrorIs(t, err, protocol.ErrUnexpectedStatus, "%s P1=%d", step.ins, step.p1)
		var perr protocol.Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, apdu.StatusWord(0x6400), perr.Status)

		last := card.Received[len(card.Received)-1]
		assert.Equal(t, step.ins, last.Instruction)
		assert.Equal(t, step.p1, last.P1)
	}
}
