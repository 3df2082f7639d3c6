package apdu

import (
	"errors"
	"fmt"

	iso7816 "github.com/skythen/apdu"
)

var (
	ErrCommandTooLong   = errors.New("apdu: command data too long")
	ErrInvalidNe        = errors.New("apdu: invalid expected response length")
	ErrResponseTooShort = errors.New("apdu: response shorter than status word")
	ErrMalformedCommand = errors.New("apdu: malformed command")
)

// Command is a command APDU.
type Command struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	// Data is the optional command body.
	Data []byte
	// Ne is the maximum number of response bytes expected, 0 when no data is expected.
	Ne int
}

// Name returns the instruction name in the namespace selected by the class byte.
func (c Command) Name() string {
	if c.Class == ClassISO {
		if name, ok := isoNames[c.Instruction]; ok {
			return name
		}
	}
	return c.Instruction.String()
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return fmt.Sprintf("%s P1=%02X P2=%02X Lc=%d Ne=%d", c.Name(), c.P1, c.P2, len(c.Data), c.Ne)
}

func (c Command) capdu() *iso7816.Capdu {
	return &iso7816.Capdu{
		Cla:  byte(c.Class),
		Ins:  byte(c.Instruction),
		P1:   c.P1,
		P2:   c.P2,
		Data: c.Data,
		Ne:   c.Ne,
	}
}

// MarshalBinary implements encoding.BinaryMarshaler.
//
// The short form is used whenever both the body and the expected response fit,
// otherwise the whole command switches to extended lengths.
func (c Command) MarshalBinary() ([]byte, error) {
	if len(c.Data) > iso7816.MaxLenCommandDataExtended {
		return nil, fmt.Errorf("%w: %d bytes", ErrCommandTooLong, len(c.Data))
	}
	if c.Ne < 0 || c.Ne > iso7816.MaxLenResponseDataExtended {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNe, c.Ne)
	}
	return c.capdu().Bytes()
}

// ParseCommand decodes a command APDU in any of the four ISO 7816-4 cases,
// in short or extended form.
func ParseCommand(raw []byte) (*Command, error) {
	// a zero Lc followed by a single byte is neither a short case 4 nor an extended Le
	if len(raw) == iso7816.LenHeader+2 && raw[iso7816.OffsetLcStandard] == 0 {
		return nil, fmt.Errorf("%w: %d body bytes", ErrMalformedCommand, len(raw)-iso7816.LenHeader)
	}
	c, err := iso7816.ParseCapdu(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	cmd := &Command{
		Class:       Class(c.Cla),
		Instruction: Instruction(c.Ins),
		P1:          c.P1,
		P2:          c.P2,
		Ne:          c.Ne,
	}
	if len(c.Data) > 0 {
		cmd.Data = append([]byte(nil), c.Data...)
	}
	return cmd, nil
}

// Response is a response APDU.
type Response struct {
	Data   []byte
	Status StatusWord
}

// ParseResponse splits a raw response into its body and trailing status word.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < iso7816.LenResponseTrailer {
		return nil, fmt.Errorf("%w: %d bytes", ErrResponseTooShort, len(raw))
	}
	r, err := iso7816.ParseRapdu(raw)
	if err != nil {
		return nil, fmt.Errorf("apdu: %w", err)
	}
	return &Response{
		Data:   append([]byte{}, r.Data...),
		Status: StatusWord(r.SW1)<<8 | StatusWord(r.SW2),
	}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r Response) MarshalBinary() ([]byte, error) {
	return (&iso7816.Rapdu{Data: r.Data, SW1: byte(r.Status >> 8), SW2: byte(r.Status)}).Bytes()
}
