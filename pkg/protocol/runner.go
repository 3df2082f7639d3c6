package protocol

import (
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
	"github.com/taurusgroup/idemix-card/pkg/math/codec"
)

// Exchanger sends one command and returns the card's response.
// *transport.Transport implements it.
type Exchanger interface {
	Exchange(cmd apdu.Command) (*apdu.Response, error)
}

// Step describes one idemix command of a run.
type Step struct {
	// Name identifies the step in logs and errors.
	Name        string
	Instruction apdu.Instruction
	P1, P2      byte
	Data        []byte
	// Tolerate lists outcomes besides Success that let the run continue.
	Tolerate []apdu.Outcome
}

func (s Step) tolerates(o apdu.Outcome) bool {
	for _, t := range s.Tolerate {
		if t == o {
			return true
		}
	}
	return false
}

// Runner executes steps against a card, in order, and stops at the first failure.
type Runner struct {
	ex  Exchanger
	Log zerolog.Logger
}

// NewRunner returns a Runner sending commands through ex.
func NewRunner(ex Exchanger, log zerolog.Logger) *Runner {
	return &Runner{ex: ex, Log: log}
}

// For returns a Runner whose log lines carry the protocol name and the SSID of ctx.
func (r *Runner) For(protocol string, ctx *Context) *Runner {
	log := r.Log.With().
		Str("protocol", protocol).
		Hex("ssid", ctx.SSID()).
		Logger()
	return &Runner{ex: r.ex, Log: log}
}

// Do sends the command of s and classifies the status word.
// It returns the response and its outcome when the outcome is Success or tolerated by s,
// and an Error otherwise.
func (r *Runner) Do(s Step) (*apdu.Response, apdu.Outcome, error) {
	resp, err := r.ex.Exchange(apdu.Command{
		Class:       apdu.ClassIdemix,
		Instruction: s.Instruction,
		P1:          s.P1,
		P2:          s.P2,
		Data:        s.Data,
	})
	if err != nil {
		r.Log.Error().Err(err).Str("step", s.Name).Msg("exchange failed")
		return nil, apdu.UnexpectedStatus, Error{Step: s.Name, Err: err}
	}

	outcome := resp.Status.Classify()
	switch {
	case outcome == apdu.Success:
		return resp, outcome, nil
	case s.tolerates(outcome):
		r.Log.Warn().Str("step", s.Name).Stringer("sw", resp.Status).Stringer("outcome", outcome).Msg("tolerated status")
		return resp, outcome, nil
	default:
		r.Log.Error().Str("step", s.Name).Stringer("sw", resp.Status).Msg("step failed")
		return nil, outcome, Error{Step: s.Name, Status: resp.Status, Err: outcomeError(outcome)}
	}
}

// Send encodes x on bits bits as the payload of s and runs it.
func (r *Runner) Send(s Step, x *saferith.Nat, bits int) error {
	data, err := codec.FixedWidth(x, bits)
	if err != nil {
		return Error{Step: s.Name, Err: fmt.Errorf("encode: %w", err)}
	}
	s.Data = data
	_, _, err = r.Do(s)
	return err
}

// Fetch runs s and decodes the response payload as an unsigned integer.
func (r *Runner) Fetch(s Step) (*saferith.Nat, error) {
	resp, outcome, err := r.Do(s)
	if err != nil {
		return nil, err
	}
	if outcome != apdu.Success {
		return nil, Error{Step: s.Name, Status: resp.Status, Err: outcomeError(outcome)}
	}
	return codec.FromUnsignedBytes(resp.Data), nil
}

// Query encodes x on bits bits as the payload of s, runs it and decodes the response payload.
func (r *Runner) Query(s Step, x *saferith.Nat, bits int) (*saferith.Nat, error) {
	data, err := codec.FixedWidth(x, bits)
	if err != nil {
		return nil, Error{Step: s.Name, Err: fmt.Errorf("encode: %w", err)}
	}
	s.Data = data
	return r.Fetch(s)
}
