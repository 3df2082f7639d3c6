package idemix

import (
	"errors"
	"fmt"
	"sync"
)

// ErrStructureNotFound is returned by a StructureStore for an unknown location.
var ErrStructureNotFound = errors.New("credential structure not found")

// AttributeStructure describes one attribute slot of a credential.
type AttributeStructure struct {
	Name string
	// KeyIndex is the index of the public key base Rᵢ this attribute is signed under.
	KeyIndex int
}

// CredentialStructure lists the attributes of a credential.
// The order of Attributes is the order in which they are transferred to the card.
type CredentialStructure struct {
	Attributes []AttributeStructure
}

// Len returns the number of attributes, not counting the master secret.
func (c *CredentialStructure) Len() int { return len(c.Attributes) }

// Validate checks that names and key indices are unique and that no attribute
// uses the master secret's index 0.
func (c *CredentialStructure) Validate() error {
	if c == nil {
		return errors.New("credential structure: nil")
	}
	names := make(map[string]bool, len(c.Attributes))
	indices := make(map[int]bool, len(c.Attributes))
	for _, a := range c.Attributes {
		if a.Name == "" {
			return errors.New("credential structure: empty attribute name")
		}
		if names[a.Name] {
			return fmt.Errorf("credential structure: duplicate attribute %q", a.Name)
		}
		if a.KeyIndex <= 0 {
			return fmt.Errorf("credential structure: attribute %q has invalid key index %d", a.Name, a.KeyIndex)
		}
		if indices[a.KeyIndex] {
			return fmt.Errorf("credential structure: duplicate key index %d", a.KeyIndex)
		}
		names[a.Name] = true
		indices[a.KeyIndex] = true
	}
	return nil
}

// StructureStore resolves the location a predicate refers to into a credential structure.
type StructureStore interface {
	CredentialStructure(location string) (*CredentialStructure, error)
}

// MapStore is an in-memory StructureStore.
type MapStore struct {
	mtx        sync.RWMutex
	structures map[string]*CredentialStructure
}

// NewMapStore returns an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{structures: map[string]*CredentialStructure{}}
}

// Add registers a structure under location, replacing any previous entry.
func (s *MapStore) Add(location string, c *CredentialStructure) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.structures[location] = c
}

// CredentialStructure implements StructureStore.
func (s *MapStore) CredentialStructure(location string) (*CredentialStructure, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	c, ok := s.structures[location]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStructureNotFound, location)
	}
	return c, nil
}
