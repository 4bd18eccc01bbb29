package combat

import (
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/stat"
)

// OnHitApplier turns on-hit tables into modifiers when a strike lands.
// Effects stack without cap or expiry for the rest of the match.
type OnHitApplier struct {
	logger *zap.Logger
}

// NewOnHitApplier creates an OnHitApplier that logs each added modifier.
//
// Precondition: logger must not be nil.
func NewOnHitApplier(logger *zap.Logger) *OnHitApplier {
	return &OnHitApplier{logger: logger}
}

// Apply adds attacker.OnHitGiven to the attacker's own store and
// victim.OnHitTaken to the victim's own store. Tables are never
// cross-applied.
//
// Postcondition: returns the number of modifiers added to each side.
func (a *OnHitApplier) Apply(attacker, victim *Entity) (given, taken int) {
	given = a.applyTable(attacker, attacker.OnHitGiven(), "given")
	taken = a.applyTable(victim, victim.OnHitTaken(), "taken")
	return given, taken
}

func (a *OnHitApplier) applyTable(e *Entity, table map[string]float64, side string) int {
	if len(table) == 0 {
		return 0
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		mod, known := stat.FromKey(key, table[key])
		e.Store().Add(mod)
		if !known {
			a.logger.Debug("on-hit modifier is inert",
				zap.Int("entity", e.ID()),
				zap.String("side", side),
				zap.String("key", key),
			)
			continue
		}
		a.logger.Debug("on-hit modifier applied",
			zap.Int("entity", e.ID()),
			zap.String("side", side),
			zap.String("stat", string(mod.Stat)),
			zap.Stringer("kind", mod.Kind),
			zap.Float64("value", mod.Value),
			zap.Int("stacks", e.Store().Count(mod.Stat, mod.Kind)),
			zap.Float64("total", kindTotal(e.Store(), mod)),
		)
	}
	return len(keys)
}

func kindTotal(s *stat.Store, mod *stat.Modifier) float64 {
	if mod.Kind == stat.Multiplier {
		return s.MultiplierTotal(mod.Stat)
	}
	return s.FlatTotal(mod.Stat)
}
