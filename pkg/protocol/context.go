package protocol

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/internal/hash"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
)

// Context is fixed for the duration of one issuance or proof run.
// It sizes every encoded field and binds the run to a session on the card.
type Context struct {
	// SessionID is sent in P1P2 of the context-setup command.
	SessionID uint16
	// Value is the issuance or proof context.
	Value *saferith.Nat
	// Params are the bit lengths used to encode every field.
	Params *idemix.SystemParameters

	ssid []byte
}

// NewContext validates its arguments and computes the SSID of the run.
// The context keeps its own copy of value and params.
func NewContext(sessionID uint16, value *saferith.Nat, params *idemix.SystemParameters) (*Context, error) {
	if value == nil {
		return nil, errors.New("context: nil value")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	paramsBytes, err := params.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	h := hash.New(
		&hash.BytesWithDomain{TheDomain: "Protocol ID", Bytes: []byte("idemix-card/session")},
		&hash.Uint16WithDomain{TheDomain: "Session ID", Value: sessionID},
		&hash.BytesWithDomain{TheDomain: "System Parameters", Bytes: paramsBytes},
	)
	if err = h.WriteAny(value); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	p := *params
	return &Context{
		SessionID: sessionID,
		Value:     new(saferith.Nat).SetNat(value),
		Params:    &p,
		ssid:      h.Sum(),
	}, nil
}

// SSID is a digest identifying this run, it is only used to correlate log lines.
func (c *Context) SSID() []byte {
	return c.ssid
}

// P1P2 splits the session id into the parameter bytes of the context-setup command.
func (c *Context) P1P2() (byte, byte) {
	return byte(c.SessionID >> 8), byte(c.SessionID)
}
