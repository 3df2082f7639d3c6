package test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/idemix-card/internal/params"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
)

func TestNetwork(t *testing.T) {
	card := NewCard()
	var (
		closedErr error
		out       []byte
	)
	err := Run(context.Background(), card, func(n *Network) error {
		_, closedErr = n.Transmit([]byte{0x00, 0xA4, 0x04, 0x00})
		if err := n.Open(); err != nil {
			return err
		}
		cmd := apdu.Command{Class: apdu.ClassISO, Instruction: apdu.InsSelect, P1: apdu.P1SelectByName, Data: params.AppletID}
		raw, err := cmd.MarshalBinary()
		if err != nil {
			return err
		}
		out, err = n.Transmit(raw)
		return err
	})
	require.NoError(t, err)
	assert.ErrorIs(t, closedErr, ErrLinkDown)

	resp, err := apdu.ParseResponse(out)
	require.NoError(t, err)
	assert.Equal(t, apdu.SWSuccess, resp.Status)
	require.Len(t, card.Received, 1)
}

func TestRunHostError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), NewCard(), func(n *Network) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCardFaults(t *testing.T) {
	card := NewCard()
	card.Fail(apdu.InsIssueProofU, apdu.P1ProofUVPrimeHat, 0x6400)
	card.FailInstruction(apdu.InsIssueNonce2, apdu.SWConditionNotSatisfied)

	resp := card.Process(apdu.Command{Class: apdu.ClassIdemix, Instruction: apdu.InsIssueProofU, P1: apdu.P1ProofUChallenge})
	assert.Equal(t, apdu.SWSuccess, resp.Status)
	resp = card.Process(apdu.Command{Class: apdu.ClassIdemix, Instruction: apdu.InsIssueProofU, P1: apdu.P1ProofUVPrimeHat})
	assert.Equal(t, apdu.StatusWord(0x6400), resp.Status)
	resp = card.Process(apdu.Command{Class: apdu.ClassIdemix, Instruction: apdu.InsIssueNonce2, P1: 7})
	assert.Equal(t, apdu.SWConditionNotSatisfied, resp.Status)
	resp = card.Process(apdu.Command{Class: apdu.ClassIdemix, Instruction: 0x7F})
	assert.Equal(t, apdu.SWInstructionNotSupported, resp.Status)

	assert.Len(t, card.Commands(apdu.InsIssueProofU), 2)
}
