package ruleset

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when a class or weapon ID is not known to a Source.
var ErrNotFound = errors.New("definition not found")

// Source supplies class and weapon definitions. Implementations return
// definitions that have been validated and normalized; callers must not
// modify them.
type Source interface {
	Class(ctx context.Context, id string) (*ClassDef, error)
	Weapon(ctx context.Context, id string) (*WeaponDef, error)
	ClassIDs(ctx context.Context) ([]string, error)
	WeaponIDs(ctx context.Context) ([]string, error)
}

// Registry is an in-memory Source keyed by definition ID.
// It is safe for concurrent reads once loading has finished.
type Registry struct {
	classes map[string]*ClassDef
	weapons map[string]*WeaponDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*ClassDef),
		weapons: make(map[string]*WeaponDef),
	}
}

// RegisterClass adds def.
//
// Precondition: def has been normalized.
// Postcondition: returns an error if def is invalid or its ID is already registered.
func (r *Registry) RegisterClass(def *ClassDef) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.classes[def.ID]; exists {
		return fmt.Errorf("class %q already registered", def.ID)
	}
	r.classes[def.ID] = def
	return nil
}

// RegisterWeapon adds def.
//
// Precondition: def has been normalized.
// Postcondition: returns an error if def is invalid or its ID is already registered.
func (r *Registry) RegisterWeapon(def *WeaponDef) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.weapons[def.ID]; exists {
		return fmt.Errorf("weapon %q already registered", def.ID)
	}
	r.weapons[def.ID] = def
	return nil
}

// Class returns the class with id, or an error wrapping ErrNotFound.
func (r *Registry) Class(_ context.Context, id string) (*ClassDef, error) {
	if def, ok := r.classes[id]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("class %q: %w", id, ErrNotFound)
}

// Weapon returns the weapon with id, or an error wrapping ErrNotFound.
func (r *Registry) Weapon(_ context.Context, id string) (*WeaponDef, error) {
	if def, ok := r.weapons[id]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("weapon %q: %w", id, ErrNotFound)
}

// ClassIDs returns all class IDs in lexical order.
func (r *Registry) ClassIDs(_ context.Context) ([]string, error) {
	return sortedKeys(r.classes), nil
}

// WeaponIDs returns all weapon IDs in lexical order.
func (r *Registry) WeaponIDs(_ context.Context) ([]string, error) {
	return sortedKeys(r.weapons), nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
