package test

import (
	"bytes"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/internal/params"
	"github.com/taurusgroup/idemix-card/pkg/apdu"
)

// fault selects the command a status word is injected for.
type fault struct {
	ins      apdu.Instruction
	p1       byte
	wildcard bool
}

// Card simulates the idemix applet: it stores what it receives and answers with
// preset values, so tests can check both directions of every exchange.
type Card struct {
	// Values returned by the card during issuance.
	U, Challenge, VPrimeHat, SA, Nonce2 *saferith.Nat
	// Values returned by the card during a proof.
	ProofChallenge, APrime, EHat, VHat, MasterResponse *saferith.Nat
	// Responses are returned by PROVE_RESPONSE for hidden attributes, keyed by key index.
	Responses map[byte]*saferith.Nat
	// Attributes are returned by PROVE_ATTRIBUTE, keyed by key index.
	// ISSUE_ATTRIBUTES writes into the same map, keyed by P1.
	Attributes map[byte]*saferith.Nat

	PIN []byte

	// SecretGenerated and Issued are the applet's persistent flags.
	SecretGenerated bool
	Issued          bool

	// Received holds every command in arrival order.
	Received []apdu.Command
	// Stored holds the data of every command carrying a payload, by instruction and P1.
	Stored map[apdu.Instruction]map[byte][]byte

	faults map[fault]apdu.StatusWord
	mtx    sync.Mutex
}

// NewCard returns a card whose responses are small distinct numbers.
func NewCard() *Card {
	nat := func(x uint64) *saferith.Nat { return new(saferith.Nat).SetUint64(x) }
	return &Card{
		U:              nat(0xC0FFEE),
		Challenge:      nat(101),
		VPrimeHat:      nat(102),
		SA:             nat(103),
		Nonce2:         nat(104),
		ProofChallenge: nat(201),
		APrime:         nat(202),
		EHat:           nat(203),
		VHat:           nat(204),
		MasterResponse: nat(205),
		Responses:      map[byte]*saferith.Nat{},
		Attributes:     map[byte]*saferith.Nat{},
		PIN:            []byte("0000"),
		Stored:         map[apdu.Instruction]map[byte][]byte{},
		faults:         map[fault]apdu.StatusWord{},
	}
}

// Fail makes the card answer sw to the command (ins, p1).
func (c *Card) Fail(ins apdu.Instruction, p1 byte, sw apdu.StatusWord) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.faults[fault{ins: ins, p1: p1}] = sw
}

// FailInstruction makes the card answer sw to ins, whatever its parameters.
func (c *Card) FailInstruction(ins apdu.Instruction, sw apdu.StatusWord) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.faults[fault{ins: ins, wildcard: true}] = sw
}

// Commands returns the received commands with instruction ins.
func (c *Card) Commands(ins apdu.Instruction) []apdu.Command {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	var out []apdu.Command
	for _, cmd := range c.Received {
		if cmd.Instruction == ins && cmd.Class == apdu.ClassIdemix {
			out = append(out, cmd)
		}
	}
	return out
}

// Transmit implements the card side of one exchange on raw frames.
func (c *Card) Transmit(raw []byte) []byte {
	var resp apdu.Response
	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		resp.Status = 0x6700
	} else {
		resp = c.Process(*cmd)
	}
	out, _ := resp.MarshalBinary()
	return out
}

// Process answers one command.
func (c *Card) Process(cmd apdu.Command) apdu.Response {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.Received = append(c.Received, cmd)
	if len(cmd.Data) > 0 {
		if c.Stored[cmd.Instruction] == nil {
			c.Stored[cmd.Instruction] = map[byte][]byte{}
		}
		c.Stored[cmd.Instruction][cmd.P1] = cmd.Data
	}

	if sw, ok := c.faults[fault{ins: cmd.Instruction, p1: cmd.P1}]; ok {
		return apdu.Response{Status: sw}
	}
	if sw, ok := c.faults[fault{ins: cmd.Instruction, wildcard: true}]; ok {
		return apdu.Response{Status: sw}
	}

	if cmd.Class == apdu.ClassISO {
		return c.processISO(cmd)
	}
	if cmd.Class != apdu.ClassIdemix {
		return apdu.Response{Status: 0x6E00}
	}

	switch cmd.Instruction {
	case apdu.InsGenerateSecret:
		if c.SecretGenerated {
			return apdu.Response{Status: apdu.SWConditionNotSatisfied}
		}
		c.SecretGenerated = true
		return ok()
	case apdu.InsIssueCredential:
		if c.Issued {
			return apdu.Response{Status: apdu.SWConditionNotSatisfied}
		}
		return ok()
	case apdu.InsIssuePublicKeyN, apdu.InsIssuePublicKeyZ, apdu.InsIssuePublicKeyS, apdu.InsIssuePublicKeyR:
		return ok()
	case apdu.InsIssueAttributes:
		c.Attributes[cmd.P1] = new(saferith.Nat).SetBytes(cmd.Data)
		return ok()
	case apdu.InsIssueNonce1:
		return data(c.U)
	case apdu.InsIssueProofU:
		return pick(cmd.P1, c.Challenge, c.VPrimeHat, c.SA)
	case apdu.InsIssueNonce2:
		return data(c.Nonce2)
	case apdu.InsIssueSignature:
		return ok()
	case apdu.InsIssueProofA:
		if cmd.P1 == apdu.P1ProofAVerify {
			c.Issued = true
		}
		return ok()
	case apdu.InsProveCredential:
		if !c.Issued {
			return apdu.Response{Status: apdu.SWNotFound}
		}
		return ok()
	case apdu.InsProveSelection:
		return ok()
	case apdu.InsProveNonce:
		return data(c.ProofChallenge)
	case apdu.InsProveSignature:
		return pick(cmd.P1, c.APrime, c.EHat, c.VHat)
	case apdu.InsProveAttribute:
		if a, found := c.Attributes[cmd.P1]; found {
			return data(a)
		}
		return apdu.Response{Status: apdu.SWNotFound}
	case apdu.InsProveResponse:
		if cmd.P1 == 0 {
			return data(c.MasterResponse)
		}
		if r, found := c.Responses[cmd.P1]; found {
			return data(r)
		}
		return data(new(saferith.Nat).SetUint64(1000 + uint64(cmd.P1)))
	default:
		return apdu.Response{Status: apdu.SWInstructionNotSupported}
	}
}

func (c *Card) processISO(cmd apdu.Command) apdu.Response {
	switch cmd.Instruction {
	case apdu.InsSelect:
		if cmd.P1 == apdu.P1SelectByName && bytes.Equal(cmd.Data, params.AppletID) {
			return ok()
		}
		return apdu.Response{Status: 0x6A82}
	case apdu.InsVerify:
		if bytes.Equal(cmd.Data, c.PIN) {
			return ok()
		}
		return apdu.Response{Status: 0x63C2}
	default:
		return apdu.Response{Status: apdu.SWInstructionNotSupported}
	}
}

func ok() apdu.Response { return apdu.Response{Status: apdu.SWSuccess} }

func data(x *saferith.Nat) apdu.Response {
	return apdu.Response{Data: x.Bytes(), Status: apdu.SWSuccess}
}

func pick(p1 byte, values ...*saferith.Nat) apdu.Response {
	if int(p1) >= len(values) {
		return apdu.Response{Status: 0x6B00}
	}
	return data(values[p1])
}
