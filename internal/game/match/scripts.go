package match

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/stat"
	"github.com/cory-johannsen/arena/internal/scripting"
)

// ErrUnknownEntity is reported to scripts that name an entity not in the match.
var ErrUnknownEntity = errors.New("no such entity in match")

// LoadScripts loads the Lua hook file of every fighter class that names one.
// Each class is loaded once even if both fighters share it.
//
// Precondition: mgr must not be nil; root is the script directory.
func LoadScripts(mgr *scripting.Manager, root string, instLimit int, fighters [2]Fighter) error {
	for _, f := range fighters {
		if f.Class == nil || f.Class.Script == "" || mgr.Has(f.Class.ID) {
			continue
		}
		path := filepath.Join(root, f.Class.Script)
		if err := mgr.LoadClass(f.Class.ID, path, instLimit); err != nil {
			return fmt.Errorf("loading hooks for class %q: %w", f.Class.ID, err)
		}
	}
	return nil
}

// bindScripts points the manager's engine.entity callbacks at this match and
// forwards hits to on_hit. Deaths reach on_death through onDeath.
func (m *Match) bindScripts() {
	m.scripts.GetEntity = func(id int) *scripting.EntityInfo {
		e := m.Entity(id)
		if e == nil {
			return nil
		}
		info := entityInfo(e)
		return &info
	}
	m.scripts.AddModifier = func(id int, key string, value float64) error {
		e := m.Entity(id)
		if e == nil {
			return fmt.Errorf("entity %d: %w", id, ErrUnknownEntity)
		}
		mod, ok := stat.FromKey(key, value)
		if !ok {
			return fmt.Errorf("unknown stat key %q", key)
		}
		e.Store().Add(mod)
		return nil
	}
	m.scripts.Heal = func(id int, amount float64) error {
		e := m.Entity(id)
		if e == nil {
			return fmt.Errorf("entity %d: %w", id, ErrUnknownEntity)
		}
		_, err := e.Heal(amount)
		return err
	}
	m.arbiter.Observe(combat.HitObserverFunc(func(h combat.Hit) {
		m.scripts.OnHit(entityInfo(h.Attacker), entityInfo(h.Victim), h.Applied)
	}))
}

func entityInfo(e *combat.Entity) scripting.EntityInfo {
	return scripting.EntityInfo{
		ID:      e.ID(),
		Name:    e.Name(),
		ClassID: e.ClassID(),
		HP:      e.CurrentHP(),
		MaxHP:   e.MaxHP(),
	}
}
