package params

const (
	SecParam  = 256
	SecBytes  = SecParam / 8
	StatParam = 80

	// Default bit lengths of the idemix CL-signature system.
	// They match the parameters the card applet is compiled against.
	BitsModulus        = 8 * SecParam // = 2048, lₙ
	BitsAttribute      = SecParam     // = 256, lₘ
	BitsHash           = SecParam     // = 256, l_H
	BitsStatistical    = StatParam    // = 80, l_Φ
	BitsPrimeE         = 597          // lₑ
	BitsPrimeEInterval = 120          // lₑ'
	BitsBlinding       = 2724         // lᵥ
	BitsChallenge      = 160          // lₖ
	BitsPrimeTest      = StatParam    // lᵣ

	// MaxKeyIndex is the largest attribute key index that fits in a single
	// disclosure-selection byte.
	MaxKeyIndex = 0xFF

	// SessionID is the only issuance/proof session the applet knows about.
	SessionID uint16 = 1
)

// AppletID is the ASCII encoding of "idemix".
var AppletID = []byte{0x69, 0x64, 0x65, 0x6D, 0x69, 0x78}
