package combat

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// Hit describes one landed strike.
type Hit struct {
	Attacker *Entity
	Victim   *Entity
	Weapon   *Weapon
	// Damage is the computed strike damage; Applied is the HP actually removed.
	Damage   float64
	Applied  float64
	Critical bool
	Killed   bool
}

// HitObserver is notified after a hit's damage and on-hit effects have been
// applied and before any resulting death notification fires.
type HitObserver interface {
	ObserveHit(h Hit)
}

// HitObserverFunc adapts a function to HitObserver.
type HitObserverFunc func(h Hit)

// ObserveHit calls f(h).
func (f HitObserverFunc) ObserveHit(h Hit) { f(h) }

// ErrDuplicateEntity is returned by Register when the ID is already registered.
var ErrDuplicateEntity = errors.New("entity already registered")

// Arbiter turns contact events from the physics layer into strikes. A
// weapon damages a given victim at most once per unbroken contact.
type Arbiter struct {
	entities  map[int]*Entity
	onHit     *OnHitApplier
	src       dice.Source
	logger    *zap.Logger
	observers []HitObserver
}

// NewArbiter creates an Arbiter. A nil src disables critical strikes.
//
// Precondition: onHit and logger must not be nil.
func NewArbiter(onHit *OnHitApplier, src dice.Source, logger *zap.Logger) *Arbiter {
	return &Arbiter{
		entities: make(map[int]*Entity),
		onHit:    onHit,
		src:      src,
		logger:   logger,
	}
}

// Register adds e to the set of entities contacts can refer to.
func (a *Arbiter) Register(e *Entity) error {
	if _, ok := a.entities[e.ID()]; ok {
		return fmt.Errorf("registering entity %d: %w", e.ID(), ErrDuplicateEntity)
	}
	a.entities[e.ID()] = e
	return nil
}

// Remove forgets entity id and disengages every weapon from it.
func (a *Arbiter) Remove(id int) {
	delete(a.entities, id)
	for _, e := range a.entities {
		if w := e.Weapon(); w != nil {
			w.EndContact(id)
		}
	}
}

// Entity returns the registered entity with id.
func (a *Arbiter) Entity(id int) (*Entity, bool) {
	e, ok := a.entities[id]
	return e, ok
}

// IDs returns the registered entity IDs in ascending order.
func (a *Arbiter) IDs() []int {
	out := make([]int, 0, len(a.entities))
	for id := range a.entities {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Observe registers o to be told about every landed hit.
func (a *Arbiter) Observe(o HitObserver) {
	a.observers = append(a.observers, o)
}

// ContactBegan handles the weapon of ownerID touching entity otherID.
// Self contact, unknown IDs, unarmed owners and dead participants are
// ignored. A strike lands only when the contact is new; the order of side
// effects is damage, on-hit effects, hit observers, death notification.
//
// Postcondition: ok is true iff a strike landed.
func (a *Arbiter) ContactBegan(ownerID, otherID int) (hit Hit, ok bool) {
	if ownerID == otherID {
		return Hit{}, false
	}
	attacker, found := a.entities[ownerID]
	if !found {
		return Hit{}, false
	}
	victim, found := a.entities[otherID]
	if !found {
		return Hit{}, false
	}
	weapon := attacker.Weapon()
	if weapon == nil || attacker.IsDead() || victim.IsDead() {
		return Hit{}, false
	}
	if !weapon.BeginContact(victim.ID()) {
		return Hit{}, false
	}

	hit = Hit{Attacker: attacker, Victim: victim, Weapon: weapon}
	hit.Damage, hit.Critical = a.strikeDamage(attacker)

	release := victim.DeferDeath()
	defer release()

	applied, err := victim.TakeDamage(hit.Damage, weapon)
	if err != nil {
		a.logger.Error("strike damage rejected",
			zap.Int("attacker", attacker.ID()),
			zap.Int("victim", victim.ID()),
			zap.Error(err),
		)
		return Hit{}, false
	}
	hit.Applied = applied
	hit.Killed = victim.IsDead()

	a.onHit.Apply(attacker, victim)

	a.logger.Debug("strike landed",
		zap.Int("attacker", attacker.ID()),
		zap.Int("victim", victim.ID()),
		zap.Float64("damage", hit.Damage),
		zap.Float64("applied", hit.Applied),
		zap.Bool("critical", hit.Critical),
		zap.Float64("victim_hp", victim.CurrentHP()),
	)

	for _, o := range a.observers {
		o.ObserveHit(hit)
	}
	return hit, true
}

// ContactEnded handles the weapon of ownerID separating from otherID,
// re-arming it against that entity. It never deals damage.
func (a *Arbiter) ContactEnded(ownerID, otherID int) {
	attacker, found := a.entities[ownerID]
	if !found {
		return
	}
	if w := attacker.Weapon(); w != nil {
		w.EndContact(otherID)
	}
}

func (a *Arbiter) strikeDamage(attacker *Entity) (damage float64, critical bool) {
	damage = attacker.EffectiveDamage()
	if damage < 0 {
		damage = 0
	}
	if a.src == nil {
		return damage, false
	}
	sheet := attacker.Sheet()
	if dice.Chance(a.src, sheet.CriticalChance()) {
		return math.Max(damage*sheet.CriticalMultiplier(), 0), true
	}
	return damage, false
}
