package region

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID issues a fresh entity identity. Identities are opaque strings;
// uniqueness is what matters, and the registry enforces it for live objects.
func NewID() string { return uuid.NewString() }

// IdentityRegistry is the world's authoritative map of live object
// identities. Exactly one live object may carry a given id at a time; the
// archive subsystem registers restored entities through it and uses TryFind
// to detect ghost collisions before re-registering.
type IdentityRegistry struct {
	byID map[string]any
}

func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{byID: map[string]any{}}
}

func (r *IdentityRegistry) Register(id string, obj any) error {
	if id == "" {
		return fmt.Errorf("identity register: empty id")
	}
	if _, ok := r.byID[id]; ok {
		return fmt.Errorf("identity register: duplicate id %s", id)
	}
	r.byID[id] = obj
	return nil
}

func (r *IdentityRegistry) TryFind(id string) (any, bool) {
	obj, ok := r.byID[id]
	return obj, ok
}

func (r *IdentityRegistry) Remove(id string) { delete(r.byID, id) }

func (r *IdentityRegistry) Len() int { return len(r.byID) }
