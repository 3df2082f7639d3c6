package apdu

import "fmt"

// Class is the CLA byte of a command.
type Class byte

const (
	// ClassISO is used for inter-industry commands such as SELECT and VERIFY.
	ClassISO Class = 0x00
	// ClassIdemix tags all proprietary idemix applet commands.
	ClassIdemix Class = 0x80
)

// Instruction is the INS byte of a command.
type Instruction byte

// ISO 7816-4 instructions.
const (
	InsSelect Instruction = 0xA4
	InsVerify Instruction = 0x20
)

// Idemix applet instructions.
const (
	InsSelectCredential Instruction = 0x00
	InsGenerateSecret   Instruction = 0x01

	InsIssueCredential Instruction = 0x10
	InsIssuePublicKeyN Instruction = 0x11
	InsIssuePublicKeyZ Instruction = 0x12
	InsIssuePublicKeyS Instruction = 0x13
	InsIssuePublicKeyR Instruction = 0x14
	InsIssueAttributes Instruction = 0x15
	InsIssueNonce1     Instruction = 0x16
	InsIssueProofU     Instruction = 0x17
	InsIssueNonce2     Instruction = 0x18
	InsIssueSignature  Instruction = 0x19
	InsIssueProofA     Instruction = 0x1A
	InsProveCredential Instruction = 0x20
	InsProveSelection  Instruction = 0x21
	InsProveNonce      Instruction = 0x22
	InsProveSignature  Instruction = 0x23
	InsProveAttribute  Instruction = 0x24
	InsProveResponse   Instruction = 0x25
)

// P1 parameters.
const (
	// P1SelectByName selects an application by its AID.
	P1SelectByName byte = 0x04

	// InsIssueProofU: c, v̂', s_A
	P1ProofUChallenge    byte = 0x00
	P1ProofUVPrimeHat    byte = 0x01
	P1ProofUMasterSecret byte = 0x02

	// InsIssueSignature and InsProveSignature: A, e, v
	P1SignatureA      byte = 0x00
	P1SignatureE      byte = 0x01
	P1SignatureV      byte = 0x02
	P1SignatureVerify byte = 0x03

	// InsIssueProofA: c', s_e
	P1ProofAChallenge byte = 0x00
	P1ProofASE        byte = 0x01
	P1ProofAVerify    byte = 0x02
)

var instructionNames = map[Instruction]string{
	InsSelectCredential: "SELECT_CREDENTIAL",
	InsGenerateSecret:   "GENERATE_SECRET",
	InsIssueCredential:  "ISSUE_CREDENTIAL",
	InsIssuePublicKeyN:  "ISSUE_PUBLIC_KEY_N",
	InsIssuePublicKeyZ:  "ISSUE_PUBLIC_KEY_Z",
	InsIssuePublicKeyS:  "ISSUE_PUBLIC_KEY_S",
	InsIssuePublicKeyR:  "ISSUE_PUBLIC_KEY_R",
	InsIssueAttributes:  "ISSUE_ATTRIBUTES",
	InsIssueNonce1:      "ISSUE_NONCE_1",
	InsIssueProofU:      "ISSUE_PROOF_U",
	InsIssueNonce2:      "ISSUE_NONCE_2",
	InsIssueSignature:   "ISSUE_SIGNATURE",
	InsIssueProofA:      "ISSUE_PROOF_A",
	InsProveCredential:  "PROVE_CREDENTIAL",
	InsProveSelection:   "PROVE_SELECTION",
	InsProveNonce:       "PROVE_NONCE",
	InsProveSignature:   "PROVE_SIGNATURE",
	InsProveAttribute:   "PROVE_ATTRIBUTE",
	InsProveResponse:    "PROVE_RESPONSE",
}

// isoNames overrides instructionNames for ClassISO commands,
// since InsVerify and InsProveCredential share a value.
var isoNames = map[Instruction]string{
	InsSelect: "SELECT",
	InsVerify: "VERIFY",
}

// String returns the catalogue name of an idemix instruction.
// Use Command.Name when the class byte is known.
func (i Instruction) String() string {
	if name, ok := instructionNames[i]; ok {
		return name
	}
	return fmt.Sprintf("INS_%02X", byte(i))
}
