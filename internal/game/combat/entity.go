package combat

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/stat"
)

// Entity is one fighter in a match: HP, stats, modifiers and at most one
// equipped weapon.
type Entity struct {
	id      int
	name    string
	classID string

	maxHP     float64
	currentHP float64

	store *stat.Store
	sheet *stat.Sheet

	weapon *Weapon

	onHitGiven map[string]float64
	onHitTaken map[string]float64

	deathHandlers []DeathHandler
	deathFired    bool
	deferDepth    int
	pendingDeath  bool
	killer        DamageSource
}

// NewEntity creates an entity at full HP.
//
// Precondition: id must be unique within the match.
// Postcondition: MaxHP() == CurrentHP() == max(base[stat.HP], 0).
func NewEntity(id int, name string, base stat.Base) *Entity {
	store := stat.NewStore()
	hp := math.Max(base[stat.HP], 0)
	return &Entity{
		id:        id,
		name:      name,
		maxHP:     hp,
		currentHP: hp,
		store:     store,
		sheet:     stat.NewSheet(base, store),
	}
}

// NewEntityFromClass creates an entity from a normalized class definition,
// seeding its standing *_increase_* modifiers and on-hit tables.
//
// Precondition: def must not be nil and must have been normalized.
func NewEntityFromClass(id int, def *ruleset.ClassDef) *Entity {
	e := NewEntity(id, def.Name, def.BaseStats.Base())
	e.classID = def.ID
	for _, mod := range def.BaseStats.Modifiers() {
		e.store.Add(mod)
	}
	e.SetOnHit(def.OnHitGiven, def.OnHitTaken)
	return e
}

// ID returns the match-unique entity ID.
func (e *Entity) ID() int { return e.id }

// Name returns the display name.
func (e *Entity) Name() string { return e.name }

// ClassID returns the class definition ID, or "" for ad-hoc entities.
func (e *Entity) ClassID() string { return e.classID }

// MaxHP returns the HP the entity started with.
func (e *Entity) MaxHP() float64 { return e.maxHP }

// CurrentHP returns remaining HP in [0, MaxHP].
func (e *Entity) CurrentHP() float64 { return e.currentHP }

// Store returns the entity's modifier store.
func (e *Entity) Store() *stat.Store { return e.store }

// Sheet returns the entity's stat sheet.
func (e *Entity) Sheet() *stat.Sheet { return e.sheet }

// Weapon returns the equipped weapon, or nil.
func (e *Entity) Weapon() *Weapon { return e.weapon }

// OnHitGiven returns the effects the entity grants itself on landing a hit.
func (e *Entity) OnHitGiven() map[string]float64 { return e.onHitGiven }

// OnHitTaken returns the effects the entity grants itself on being hit.
func (e *Entity) OnHitTaken() map[string]float64 { return e.onHitTaken }

// SetOnHit replaces both on-hit tables with copies of given and taken. A nil
// or empty table means no effect.
func (e *Entity) SetOnHit(given, taken map[string]float64) {
	e.onHitGiven = copyTable(given)
	e.onHitTaken = copyTable(taken)
}

// OnDeath registers h to be called when the entity dies.
func (e *Entity) OnDeath(h DeathHandler) {
	e.deathHandlers = append(e.deathHandlers, h)
}

// IsDead reports whether HP has reached zero.
func (e *Entity) IsDead() bool {
	return e.currentHP <= 0
}

// TakeDamage subtracts amount from CurrentHP, clamping at zero. The first
// call that brings HP to zero fires the death handlers; once dead, further
// calls are no-ops that return (0, nil).
//
// Precondition: amount >= 0.
// Postcondition: returns ErrNegativeDamage for a negative or NaN amount
// without changing state; otherwise 0 <= CurrentHP() and applied is the HP
// actually removed.
func (e *Entity) TakeDamage(amount float64, source DamageSource) (applied float64, err error) {
	if !(amount >= 0) {
		return 0, fmt.Errorf("entity %d: %w (got %v)", e.id, ErrNegativeDamage, amount)
	}
	if e.IsDead() {
		return 0, nil
	}
	applied = math.Min(amount, e.currentHP)
	e.currentHP -= applied
	if e.currentHP <= 0 {
		e.currentHP = 0
		e.killer = source
		e.pendingDeath = true
		e.flushDeath()
	}
	return applied, nil
}

// Heal restores up to amount HP, capped at MaxHP. Dead entities cannot be
// healed.
//
// Postcondition: returns ErrNegativeHeal for a negative or NaN amount.
func (e *Entity) Heal(amount float64) (healed float64, err error) {
	if !(amount >= 0) {
		return 0, fmt.Errorf("entity %d: %w (got %v)", e.id, ErrNegativeHeal, amount)
	}
	if e.IsDead() {
		return 0, nil
	}
	healed = math.Min(amount, e.maxHP-e.currentHP)
	e.currentHP += healed
	return healed, nil
}

// DeferDeath postpones death notifications until the returned release
// function is called. Calls nest; handlers fire when the outermost release
// runs.
func (e *Entity) DeferDeath() (release func()) {
	e.deferDepth++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		e.deferDepth--
		e.flushDeath()
	}
}

func (e *Entity) flushDeath() {
	if !e.pendingDeath || e.deferDepth > 0 || e.deathFired {
		return
	}
	e.pendingDeath = false
	e.deathFired = true
	for _, h := range e.deathHandlers {
		h(e, e.killer)
	}
}

// Equip binds w as the entity's weapon and returns the previously equipped
// weapon, which is detached but not otherwise modified. Equip(nil) unequips.
//
// Postcondition: returns ErrWeaponOwner without changing state if w belongs
// to another entity.
func (e *Entity) Equip(w *Weapon) (previous *Weapon, err error) {
	if w != nil && w.OwnerID() != e.id {
		return nil, fmt.Errorf("equipping weapon owned by %d on entity %d: %w", w.OwnerID(), e.id, ErrWeaponOwner)
	}
	previous = e.weapon
	e.weapon = w
	return previous, nil
}

// DamageIncreaseFlat returns the sum of the entity's flat damage modifiers.
func (e *Entity) DamageIncreaseFlat() float64 {
	return e.store.FlatTotal(stat.Damage)
}

// EffectiveDamage returns the damage one strike deals. Without a weapon it
// falls back to the entity's flat damage bonus. With a weapon, the weapon's
// current damage and the entity's flat bonus are summed before the entity's
// damage multiplier is applied:
//
//	(weapon.CurrentDamage() + Σflat) × (1 + Σmultiplier)
func (e *Entity) EffectiveDamage() float64 {
	if e.weapon == nil {
		return e.DamageIncreaseFlat()
	}
	return e.store.Effective(stat.Damage, e.weapon.CurrentDamage())
}

// AtkSpeedModifiers returns the entity's flat and multiplier attack-speed
// totals, which scale its weapon's orbit.
func (e *Entity) AtkSpeedModifiers() (flat, mult float64) {
	return e.store.Totals(stat.AtkSpeed)
}

// OwnerID lets an entity act as its own DamageSource.
func (e *Entity) OwnerID() int { return e.id }

func copyTable(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
