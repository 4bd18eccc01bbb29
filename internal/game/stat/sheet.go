package stat

// Base is an immutable record of base stat values copied from a definition.
type Base map[Name]float64

// Sheet is a read-only view pairing a fixed Base with a Store. Every accessor
// recomputes from the current modifiers; nothing is cached.
type Sheet struct {
	base  Base
	store *Store
}

// NewSheet copies base and binds it to store.
//
// Precondition: store must not be nil.
func NewSheet(base Base, store *Store) *Sheet {
	cp := make(Base, len(base))
	for k, v := range base {
		cp[k] = v
	}
	return &Sheet{base: cp, store: store}
}

// Base returns the base value of name, or 0 when the definition did not set it.
func (s *Sheet) Base(name Name) float64 {
	return s.base[name]
}

// Store returns the modifier store backing this sheet.
func (s *Sheet) Store() *Store {
	return s.store
}

// Get returns the effective value of name.
func (s *Sheet) Get(name Name) float64 {
	return s.store.Effective(name, s.base[name])
}

func (s *Sheet) HP() float64                 { return s.Get(HP) }
func (s *Sheet) MoveSpeed() float64          { return s.Get(MoveSpeed) }
func (s *Sheet) Damage() float64             { return s.Get(Damage) }
func (s *Sheet) AtkSpeed() float64           { return s.Get(AtkSpeed) }
func (s *Sheet) Defense() float64            { return s.Get(Defense) }
func (s *Sheet) CriticalChance() float64     { return s.Get(CriticalChance) }
func (s *Sheet) CriticalMultiplier() float64 { return s.Get(CriticalMultiplier) }
func (s *Sheet) SizeMultiplier() float64     { return s.Get(SizeMultiplier) }

// Snapshot returns the effective value of every recognised stat.
func (s *Sheet) Snapshot() map[Name]float64 {
	out := make(map[Name]float64, len(Names))
	for _, n := range Names {
		out[n] = s.Get(n)
	}
	return out
}
