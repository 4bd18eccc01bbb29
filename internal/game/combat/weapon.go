package combat

import (
	"sort"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/stat"
)

// Weapon is an orbiting weapon bound to one owner. It carries its own stats
// and the set of entities it is currently in contact with.
//
// Invariant: an entity ID is in the engaged set iff a contact with it has
// begun and not yet ended.
type Weapon struct {
	ownerID int
	defID   string
	name    string

	store  *stat.Store
	sheet  *stat.Sheet
	hitbox ruleset.HitboxDef

	engaged map[int]struct{}
}

// NewWeapon creates a weapon owned by ownerID with a default box hitbox.
func NewWeapon(ownerID int, name string, base stat.Base) *Weapon {
	store := stat.NewStore()
	return &Weapon{
		ownerID: ownerID,
		name:    name,
		store:   store,
		sheet:   stat.NewSheet(base, store),
		hitbox: ruleset.HitboxDef{
			Type:   ruleset.BoxHitbox,
			Width:  ruleset.DefaultBoxWidth,
			Height: ruleset.DefaultBoxHeight,
		},
		engaged: make(map[int]struct{}),
	}
}

// NewWeaponFromDef creates a weapon for ownerID from a normalized definition.
//
// Precondition: def must not be nil and must have been normalized.
func NewWeaponFromDef(ownerID int, def *ruleset.WeaponDef) *Weapon {
	w := NewWeapon(ownerID, def.Name, def.BaseStats.Base())
	w.defID = def.ID
	for _, mod := range def.BaseStats.Modifiers() {
		w.store.Add(mod)
	}
	if def.Hitbox != nil {
		w.hitbox = *def.Hitbox
	}
	return w
}

// OwnerID returns the ID of the entity holding this weapon.
func (w *Weapon) OwnerID() int { return w.ownerID }

// DefID returns the weapon definition ID, or "" for ad-hoc weapons.
func (w *Weapon) DefID() string { return w.defID }

// Name returns the display name.
func (w *Weapon) Name() string { return w.name }

// Store returns the weapon's own modifier store.
func (w *Weapon) Store() *stat.Store { return w.store }

// Hitbox returns the weapon's collision shape before size scaling.
func (w *Weapon) Hitbox() ruleset.HitboxDef { return w.hitbox }

// CurrentDamage returns the weapon's damage after its own modifiers.
func (w *Weapon) CurrentDamage() float64 { return w.sheet.Damage() }

// CurrentAtkSpeed returns the weapon's attack speed after its own modifiers.
func (w *Weapon) CurrentAtkSpeed() float64 { return w.sheet.AtkSpeed() }

// CurrentSizeMultiplier returns the weapon's size scale after its own modifiers.
func (w *Weapon) CurrentSizeMultiplier() float64 { return w.sheet.SizeMultiplier() }

// BeginContact records that the weapon touched entity id.
//
// Postcondition: returns true iff id was not already engaged.
func (w *Weapon) BeginContact(id int) bool {
	if _, ok := w.engaged[id]; ok {
		return false
	}
	w.engaged[id] = struct{}{}
	return true
}

// EndContact records that the weapon separated from entity id. Ending a
// contact that never began is a no-op.
func (w *Weapon) EndContact(id int) {
	delete(w.engaged, id)
}

// IsEngaged reports whether id is in the engaged set.
func (w *Weapon) IsEngaged(id int) bool {
	_, ok := w.engaged[id]
	return ok
}

// Engaged returns the engaged entity IDs in ascending order.
func (w *Weapon) Engaged() []int {
	out := make([]int, 0, len(w.engaged))
	for id := range w.engaged {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// ClearContacts empties the engaged set.
func (w *Weapon) ClearContacts() {
	clear(w.engaged)
}
