package prove

import (
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/idemix-card/pkg/idemix"
	"github.com/taurusgroup/idemix-card/pkg/protocol"
)

// builder collects the values of a proof as they are received and refuses to overwrite any.
type builder struct {
	sValues      map[string]idemix.SValue
	commonValues map[string]*saferith.Nat
}

func newBuilder() *builder {
	return &builder{
		sValues:      map[string]idemix.SValue{},
		commonValues: map[string]*saferith.Nat{},
	}
}

func (b *builder) response(name string, s idemix.SValue) error {
	if _, ok := b.sValues[name]; ok {
		return fmt.Errorf("s-value %q: %w", name, protocol.ErrDuplicateIdentifier)
	}
	b.sValues[name] = s
	return nil
}

func (b *builder) common(name string, x *saferith.Nat) error {
	if _, ok := b.commonValues[name]; ok {
		return fmt.Errorf("common value %q: %w", name, protocol.ErrDuplicateIdentifier)
	}
	b.commonValues[name] = x
	return nil
}

func (b *builder) build(challenge *saferith.Nat) *idemix.Proof {
	return idemix.NewProof(challenge, b.sValues, b.commonValues)
}
