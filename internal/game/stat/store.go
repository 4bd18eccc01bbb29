package stat

// Store holds the modifiers applied to one entity or weapon and computes
// effective values from them.
// It is not safe for concurrent use; the caller must serialise access.
type Store struct {
	mods []*Modifier
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Add appends mod. The stat name is not validated; a modifier on an unknown
// stat is kept but contributes to no Effective computation.
//
// Precondition: mod must not be nil.
func (s *Store) Add(mod *Modifier) {
	s.mods = append(s.mods, mod)
}

// Remove deletes mod by pointer identity. Removing a modifier that is not in
// the store is a no-op.
func (s *Store) Remove(mod *Modifier) {
	for i, m := range s.mods {
		if m == mod {
			s.mods = append(s.mods[:i], s.mods[i+1:]...)
			return
		}
	}
}

// Len returns the number of modifiers held.
func (s *Store) Len() int {
	return len(s.mods)
}

// All returns a snapshot of the modifiers in insertion order.
//
// Postcondition: mutating the returned slice does not affect the store.
func (s *Store) All() []Modifier {
	out := make([]Modifier, len(s.mods))
	for i, m := range s.mods {
		out[i] = *m
	}
	return out
}

// Totals returns the summed Flat and Multiplier values for name.
func (s *Store) Totals(name Name) (flat, mult float64) {
	for _, m := range s.mods {
		if m.Stat != name {
			continue
		}
		switch m.Kind {
		case Flat:
			flat += m.Value
		case Multiplier:
			mult += m.Value
		}
	}
	return flat, mult
}

// FlatTotal returns the sum of all Flat modifiers on name.
func (s *Store) FlatTotal(name Name) float64 {
	flat, _ := s.Totals(name)
	return flat
}

// MultiplierTotal returns the sum of all Multiplier modifiers on name.
func (s *Store) MultiplierTotal(name Name) float64 {
	_, mult := s.Totals(name)
	return mult
}

// Effective computes (base + Σflat) × (1 + Σmultiplier) over the modifiers on
// name. Modifiers of the same kind always sum; they are never chained.
//
// Postcondition: the result depends only on base and the current modifier
// multiset, not on insertion order.
func (s *Store) Effective(name Name, base float64) float64 {
	flat, mult := s.Totals(name)
	return (base + flat) * (1 + mult)
}

// Count returns how many modifiers of kind target name.
func (s *Store) Count(name Name, kind Kind) int {
	n := 0
	for _, m := range s.mods {
		if m.Stat == name && m.Kind == kind {
			n++
		}
	}
	return n
}
