// Package skill runs class active skills: timed buffs that fire
// automatically on a cooldown.
package skill

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/stat"
)

// Runner drives one entity's active skill.
//
// The cooldown starts counting at match start and restarts on every
// activation. A cooldown that elapses while the skill is still active waits
// for it to expire before firing again.
//
// It is not safe for concurrent use; the caller must serialise access.
type Runner struct {
	owner  *combat.Entity
	def    *ruleset.ActiveSkillDef
	logger *zap.Logger

	cooldownLeft float64
	activeLeft   float64
	active       bool
	activations  int
	applied      []*stat.Modifier
}

// NewRunner creates a Runner for owner's skill def.
//
// Precondition: owner, def and logger must not be nil; def must be valid.
func NewRunner(owner *combat.Entity, def *ruleset.ActiveSkillDef, logger *zap.Logger) *Runner {
	return &Runner{
		owner:        owner,
		def:          def,
		logger:       logger.With(zap.Int("entity", owner.ID()), zap.String("skill", def.ID)),
		cooldownLeft: def.Cooldown,
	}
}

// OwnerID returns the skill owner's ID so poison damage is credited to it.
func (r *Runner) OwnerID() int { return r.owner.ID() }

// Active reports whether the skill's effects are currently applied.
func (r *Runner) Active() bool { return r.active }

// Activations returns how many times the skill has fired.
func (r *Runner) Activations() int { return r.activations }

// CooldownRemaining returns the seconds until the skill may next fire.
func (r *Runner) CooldownRemaining() float64 {
	if r.cooldownLeft < 0 {
		return 0
	}
	return r.cooldownLeft
}

// Tick advances the skill by dt seconds. While active, poison effects damage
// every living entity in opponents. A dead owner stops its skill.
//
// Precondition: dt >= 0.
func (r *Runner) Tick(dt float64, opponents []*combat.Entity) {
	if r.owner.IsDead() {
		if r.active {
			r.expire()
		}
		return
	}

	r.cooldownLeft -= dt

	if r.active {
		r.poison(dt, opponents)
		r.activeLeft -= dt
		if r.activeLeft <= 0 {
			r.expire()
		}
	}
	if !r.active && r.cooldownLeft <= 0 {
		r.activate()
	}
}

// ObserveHit returns a fraction of damage dealt by the owner as HP while the
// skill is active.
func (r *Runner) ObserveHit(h combat.Hit) {
	if !r.active || h.Attacker != r.owner {
		return
	}
	steal := r.def.Effects.Lifesteal * h.Applied
	if steal <= 0 {
		return
	}
	healed, err := r.owner.Heal(steal)
	if err != nil {
		r.logger.Warn("lifesteal heal rejected", zap.Error(err))
		return
	}
	r.logger.Debug("lifesteal", zap.Float64("healed", healed))
}

func (r *Runner) activate() {
	r.active = true
	r.activations++
	r.activeLeft = r.def.Duration
	r.cooldownLeft = r.def.Cooldown

	r.applied = r.def.Effects.Modifiers()
	for _, mod := range r.applied {
		r.owner.Store().Add(mod)
	}
	if heal := r.def.Effects.HealOnActivate; heal > 0 {
		if _, err := r.owner.Heal(heal); err != nil {
			r.logger.Warn("skill heal rejected", zap.Error(err))
		}
	}
	r.logger.Debug("skill activated",
		zap.Int("modifiers", len(r.applied)),
		zap.Float64("duration", r.def.Duration),
	)
	if r.def.Duration <= 0 {
		r.expire()
	}
}

func (r *Runner) expire() {
	for _, mod := range r.applied {
		r.owner.Store().Remove(mod)
	}
	r.applied = nil
	r.active = false
	r.activeLeft = 0
	r.logger.Debug("skill expired")
}

func (r *Runner) poison(dt float64, opponents []*combat.Entity) {
	if !r.def.Effects.PoisonAllArena || r.def.Effects.PoisonDamagePerSecond <= 0 {
		return
	}
	amount := r.def.Effects.PoisonDamagePerSecond * dt
	for _, opp := range opponents {
		if opp == r.owner || opp.IsDead() {
			continue
		}
		if _, err := opp.TakeDamage(amount, r); err != nil {
			r.logger.Warn("poison damage rejected", zap.Int("victim", opp.ID()), zap.Error(err))
		}
	}
}
