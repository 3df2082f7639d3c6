package main

import (
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
)

func TestIssuerFor(t *testing.T) {
	p := idemix.DefaultSystemParameters()
	n := modulus(p.Ln)
	assert.Equal(t, p.Ln, n.BitLen())

	issuer := issuerFor(n, p)
	out, err := issuer(idemix.NewMessage(map[idemix.IssuanceValue]*saferith.Nat{idemix.CapU: nat(5)}, nil))
	require.NoError(t, err)

	a, err := out.Value(idemix.CapA)
	require.NoError(t, err)
	_, _, lt := a.CmpMod(n)
	assert.Equal(t, saferith.Choice(1), lt)

	se, err := out.Proof.SValue(idemix.SE)
	require.NoError(t, err)
	_, _, lt = se.CmpMod(n)
	assert.Equal(t, saferith.Choice(1), lt)

	_, err = issuer(idemix.NewMessage(nil, nil))
	assert.Error(t, err)
}
