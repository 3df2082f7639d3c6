package apdu

import "fmt"

// StatusWord is the two byte trailer SW1 SW2 of every response.
type StatusWord uint16

const (
	SWSuccess                 StatusWord = 0x9000
	SWInstructionNotSupported StatusWord = 0x6D00
	SWConditionNotSatisfied   StatusWord = 0x6986
	SWNotFound                StatusWord = 0x6A88
)

// String implements fmt.Stringer.
func (sw StatusWord) String() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

// Outcome is the classification of a status word.
type Outcome uint8

const (
	UnexpectedStatus Outcome = iota
	Success
	// InstructionNotSupported means the applet lacks the requested feature.
	InstructionNotSupported
	// ConditionNotSatisfied signals a violated applet precondition,
	// e.g. a credential that was already issued or a secret that was already generated.
	ConditionNotSatisfied
	// NotFound signals that the referenced credential or context is absent.
	NotFound
)

// Classify maps a status word to its Outcome.
func (sw StatusWord) Classify() Outcome {
	switch sw {
	case SWSuccess:
		return Success
	case SWInstructionNotSupported:
		return InstructionNotSupported
	case SWConditionNotSatisfied:
		return ConditionNotSatisfied
	case SWNotFound:
		return NotFound
	default:
		return UnexpectedStatus
	}
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case InstructionNotSupported:
		return "instruction not supported"
	case ConditionNotSatisfied:
		return "condition not satisfied"
	case NotFound:
		return "not found"
	default:
		return "unexpected status"
	}
}
