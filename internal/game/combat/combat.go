// Package combat resolves weapon strikes between arena entities: damage,
// death, on-hit modifier propagation and orbit timing.
//
// Every type in this package is driven from the single match update loop and
// is not safe for concurrent use; the caller must serialise access.
package combat

import "errors"

// ErrNegativeDamage is returned by TakeDamage when amount is negative or NaN.
var ErrNegativeDamage = errors.New("damage amount must be >= 0")

// ErrNegativeHeal is returned by Heal when amount is negative or NaN.
var ErrNegativeHeal = errors.New("heal amount must be >= 0")

// ErrWeaponOwner is returned by Equip when the weapon belongs to another entity.
var ErrWeaponOwner = errors.New("weapon is owned by another entity")

// DamageSource identifies what dealt damage. OwnerID is the entity credited
// with the damage.
type DamageSource interface {
	OwnerID() int
}

// DeathHandler is notified once when an entity's HP reaches zero. source is
// the DamageSource of the killing blow and may be nil.
type DeathHandler func(dead *Entity, source DamageSource)
