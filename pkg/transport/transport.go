// Package transport exchanges command APDUs with the idemix applet over a
// half-duplex channel supplied by the caller.
package transport

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/idemix-card/internal/hash"
	"github.com/taurusgroup/idemix-card/internal/params"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
)

var (
	// ErrTransmission wraps every channel level failure.
	ErrTransmission = errors.New("transmission failure")
	// ErrSelectionFailed is returned when the applet does not answer SELECT with 9000.
	ErrSelectionFailed = errors.New("applet selection failed")
	// ErrPINRejected is returned when the card does not accept a PIN.
	ErrPINRejected = errors.New("PIN rejected")
	// ErrClosed is returned by Exchange after Close.
	ErrClosed = errors.New("transport closed")
)

// Channel is a half-duplex link to a card, such as a PC/SC reader connection.
type Channel interface {
	// Open establishes the connection.
	Open() error
	// IsOpen reports whether Open succeeded and Close was not called since.
	IsOpen() bool
	// Transmit sends one command frame and blocks until the response frame is received.
	Transmit(command []byte) ([]byte, error)
	// Close releases the connection.
	Close() error
}

// StatusError reports a status word returned by the card.
type StatusError struct {
	Status apdu.StatusWord
	Err    error
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s (SW %s)", e.Err, e.Status)
}

func (e StatusError) Unwrap() error {
	return e.Err
}

// Transport wraps a Channel, and frames, traces and records every exchange.
type Transport struct {
	ch  Channel
	aid []byte
	log zerolog.Logger

	// transcript absorbs every command and response frame.
	transcript *hash.Hash
	closed     bool

	mtx sync.Mutex
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger receiving one debug event per exchange.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// WithAID overrides the application identifier used by Open.
func WithAID(aid []byte) Option {
	return func(t *Transport) { t.aid = append([]byte(nil), aid...) }
}

// New returns a Transport over ch. The channel is not opened.
func New(ch Channel, opts ...Option) *Transport {
	t := &Transport{
		ch:  ch,
		aid: params.AppletID,
		log: zerolog.Nop(),
		transcript: hash.New(&hash.BytesWithDomain{
			TheDomain: "Protocol ID",
			Bytes:     []byte("idemix-card/apdu"),
		}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open opens the channel if necessary, and selects the idemix applet.
func (t *Transport) Open() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if !t.ch.IsOpen() {
		if err := t.ch.Open(); err != nil {
			return fmt.Errorf("transport: open: %w: %v", ErrTransmission, err)
		}
	}
	t.closed = false

	resp, err := t.exchange(apdu.Command{
		Class:       apdu.ClassISO,
		Instruction: apdu.InsSelect,
		P1:          apdu.P1SelectByName,
		Data:        t.aid,
		Ne:          256,
	})
	if err != nil {
		return fmt.Errorf("transport: select: %w", err)
	}
	if resp.Status != apdu.SWSuccess {
		return fmt.Errorf("transport: select %X: %w", t.aid, StatusError{Status: resp.Status, Err: ErrSelectionFailed})
	}
	t.log.Info().Hex("aid", t.aid).Msg("applet selected")
	return nil
}

// Exchange sends cmd and returns the card's response.
// The status word is not interpreted, only channel and framing failures are errors.
func (t *Transport) Exchange(cmd apdu.Command) (*apdu.Response, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.closed {
		return nil, fmt.Errorf("transport: %s: %w: %v", cmd.Name(), ErrTransmission, ErrClosed)
	}
	return t.exchange(cmd)
}

func (t *Transport) exchange(cmd apdu.Command) (*apdu.Response, error) {
	raw, err := cmd.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("transport: %s: %w", cmd.Name(), err)
	}
	_ = t.transcript.WriteAny(&hash.BytesWithDomain{TheDomain: "Command", Bytes: raw})

	start := time.Now()
	rawResp, err := t.ch.Transmit(raw)
	duration := time.Since(start)
	if err != nil {
		t.log.Debug().Str("ins", cmd.Name()).Str("C", hex.EncodeToString(raw)).Err(err).Msg("transmit failed")
		return nil, fmt.Errorf("transport: %s: %w: %v", cmd.Name(), ErrTransmission, err)
	}
	_ = t.transcript.WriteAny(&hash.BytesWithDomain{TheDomain: "Response", Bytes: rawResp})

	resp, err := apdu.ParseResponse(rawResp)
	if err != nil {
		return nil, fmt.Errorf("transport: %s: %w: %v", cmd.Name(), ErrTransmission, err)
	}
	t.log.Debug().
		Str("ins", cmd.Name()).
		Str("C", hex.EncodeToString(raw)).
		Str("R", hex.EncodeToString(rawResp)).
		Stringer("sw", resp.Status).
		Dur("duration", duration).
		Msg("exchange")
	return resp, nil
}

// VerifyPIN presents pin to the card with the ISO 7816 VERIFY command.
func (t *Transport) VerifyPIN(pin []byte) error {
	resp, err := t.Exchange(apdu.Command{
		Class:       apdu.ClassISO,
		Instruction: apdu.InsVerify,
		Data:        pin,
	})
	if err != nil {
		return err
	}
	if resp.Status != apdu.SWSuccess {
		return fmt.Errorf("transport: verify: %w", StatusError{Status: resp.Status, Err: ErrPINRejected})
	}
	return nil
}

// Transcript returns a digest of every frame exchanged so far.
func (t *Transport) Transcript() []byte {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.transcript.Clone().Sum()
}

// Close releases the channel. Closing twice, or closing a channel that was
// never opened, does nothing.
func (t *Transport) Close() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.closed = true
	if t.ch == nil || !t.ch.IsOpen() {
		return nil
	}
	if err := t.ch.Close(); err != nil {
		return fmt.Errorf("transport: close: %w", err)
	}
	return nil
}
