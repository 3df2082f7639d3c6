package protocol

import (
	"errors"
	"fmt"

	"github.com/taurusgroup/idemix-card/pkg/apdu"
	"github.com/taurusgroup/idemix-card/pkg/transport"
)

var (
	// ErrTransmission is returned when the channel fails during a run.
	ErrTransmission = transport.ErrTransmission
	// ErrUnsupportedOperation is returned when the card does not implement an instruction (6D00).
	ErrUnsupportedOperation = errors.New("operation not supported by card")
	// ErrConditionNotSatisfied is returned when a card side precondition fails (6986),
	// e.g. a credential was already issued.
	ErrConditionNotSatisfied = errors.New("condition not satisfied")
	// ErrNotFound is returned when the referenced credential is absent from the card (6A88).
	ErrNotFound = errors.New("not found")
	// ErrUnexpectedStatus is returned for any status word without a dedicated meaning.
	ErrUnexpectedStatus = errors.New("unexpected status")

	ErrUnsupportedPredicate = errors.New("unsupported predicate")
	ErrInvalidState         = errors.New("invalid state")
	ErrDuplicateIdentifier  = errors.New("duplicate identifier name")
	ErrMissingAttribute     = errors.New("missing attribute value")
)

// Error is returned when a step of a run fails. It records the step and the
// status word returned by the card, which is zero when no response was received.
type Error struct {
	// Step names the failed command, e.g. "ISSUE_PROOF_U c".
	Step string
	// Status is the raw status word of the card.
	Status apdu.StatusWord
	// Err is the underlying error
	Err error
}

func (e Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("step %s: %s", e.Step, e.Err)
	}
	return fmt.Sprintf("step %s: %s (SW %s)", e.Step, e.Err, e.Status)
}

func (e Error) Unwrap() error {
	return e.Err
}

// outcomeError maps a classified status to its sentinel.
func outcomeError(o apdu.Outcome) error {
	switch o {
	case apdu.InstructionNotSupported:
		return ErrUnsupportedOperation
	case apdu.ConditionNotSatisfied:
		return ErrConditionNotSatisfied
	case apdu.NotFound:
		return ErrNotFound
	default:
		return ErrUnexpectedStatus
	}
}
