package skill_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/skill"
	"github.com/cory-johannsen/arena/internal/game/stat"
)

func entity(id int, hp float64) *combat.Entity {
	return combat.NewEntity(id, "fighter", stat.Base{stat.HP: hp})
}

func frenzy() *ruleset.ActiveSkillDef {
	return &ruleset.ActiveSkillDef{
		ID:       "frenzy",
		Cooldown: 5,
		Duration: 2,
		Effects: ruleset.SkillEffects{
			AtkSpeedMultiplier: 0.5,
			DamageIncreaseFlat: 3,
		},
	}
}

func TestRunner_ActivatesAfterCooldown(t *testing.T) {
	owner := entity(1, 100)
	r := skill.NewRunner(owner, frenzy(), zaptest.NewLogger(t))

	r.Tick(4.9, nil)
	assert.False(t, r.Active())
	r.Tick(0.2, nil)
	require.True(t, r.Active())
	assert.Equal(t, 1, r.Activations())
	_, mult := owner.AtkSpeedModifiers()
	assert.Equal(t, 0.5, mult)
	assert.Equal(t, 3.0, owner.DamageIncreaseFlat())
}

func TestRunner_ExpiryRemovesOnlyItsModifiers(t *testing.T) {
	owner := entity(1, 100)
	standing := stat.NewModifier(stat.Damage, 1, stat.Flat)
	owner.Store().Add(standing)
	r := skill.NewRunner(owner, frenzy(), zaptest.NewLogger(t))

	r.Tick(5, nil)
	require.True(t, r.Active())
	assert.Equal(t, 4.0, owner.DamageIncreaseFlat())

	r.Tick(2, nil)
	assert.False(t, r.Active())
	assert.Equal(t, 1.0, owner.DamageIncreaseFlat())
	assert.Equal(t, 1, owner.Store().Len())
}

func TestRunner_CooldownRestartsOnActivation(t *testing.T) {
	owner := entity(1, 100)
	r := skill.NewRunner(owner, frenzy(), zaptest.NewLogger(t))

	r.Tick(5, nil)
	assert.Equal(t, 5.0, r.CooldownRemaining())
	for i := 0; i < 49; i++ {
		r.Tick(0.1, nil)
	}
	assert.Equal(t, 1, r.Activations())
	r.Tick(0.2, nil)
	assert.Equal(t, 2, r.Activations())
}

func TestRunner_DurationLongerThanCooldown_WaitsForExpiry(t *testing.T) {
	def := frenzy()
	def.Cooldown = 1
	def.Duration = 3
	owner := entity(1, 100)
	r := skill.NewRunner(owner, def, zaptest.NewLogger(t))

	r.Tick(1, nil)
	require.Equal(t, 1, r.Activations())
	r.Tick(1, nil)
	r.Tick(1, nil)
	assert.Equal(t, 1, r.Activations())
	r.Tick(1, nil)
	assert.Equal(t, 2, r.Activations(), "re-fires in the tick it expires")
	assert.Equal(t, 1, owner.Store().Count(stat.AtkSpeed, stat.Multiplier))
}

func TestRunner_HealOnActivate(t *testing.T) {
	def := frenzy()
	def.Effects = ruleset.SkillEffects{HealOnActivate: 25}
	owner := entity(1, 100)
	_, err := owner.TakeDamage(40, nil)
	require.NoError(t, err)

	r := skill.NewRunner(owner, def, zaptest.NewLogger(t))
	r.Tick(5, nil)
	assert.Equal(t, 85.0, owner.CurrentHP())
}

func TestRunner_PoisonDamagesOpponentsWhileActive(t *testing.T) {
	def := frenzy()
	def.Effects = ruleset.SkillEffects{PoisonAllArena: true, PoisonDamagePerSecond: 10}
	owner := entity(1, 100)
	victim := entity(2, 100)
	var killer combat.DamageSource
	victim.OnDeath(func(_ *combat.Entity, src combat.DamageSource) { killer = src })

	r := skill.NewRunner(owner, def, zaptest.NewLogger(t))
	all := []*combat.Entity{owner, victim}
	r.Tick(5, all)
	assert.Equal(t, 100.0, victim.CurrentHP(), "activation tick deals no poison")
	r.Tick(1, all)
	assert.Equal(t, 90.0, victim.CurrentHP())
	assert.Equal(t, 100.0, owner.CurrentHP(), "owner is immune to its own poison")
	r.Tick(1, all)
	r.Tick(1, all)
	assert.Equal(t, 80.0, victim.CurrentHP(), "no poison after expiry")

	_, err := victim.TakeDamage(80, r)
	require.NoError(t, err)
	require.NotNil(t, killer)
	assert.Equal(t, 1, killer.OwnerID())
}

func TestRunner_Lifesteal(t *testing.T) {
	def := frenzy()
	def.Effects = ruleset.SkillEffects{Lifesteal: 0.5}
	owner := entity(1, 100)
	other := entity(2, 100)
	_, err := owner.TakeDamage(50, nil)
	require.NoError(t, err)

	r := skill.NewRunner(owner, def, zaptest.NewLogger(t))
	r.ObserveHit(combat.Hit{Attacker: owner, Victim: other, Applied: 10})
	assert.Equal(t, 50.0, owner.CurrentHP(), "inactive skill steals nothing")

	r.Tick(5, nil)
	r.ObserveHit(combat.Hit{Attacker: owner, Victim: other, Applied: 10})
	assert.Equal(t, 55.0, owner.CurrentHP())
	r.ObserveHit(combat.Hit{Attacker: other, Victim: owner, Applied: 10})
	assert.Equal(t, 55.0, owner.CurrentHP(), "only the owner's hits count")
}

func TestRunner_DeadOwner_ExpiresAndStops(t *testing.T) {
	owner := entity(1, 10)
	r := skill.NewRunner(owner, frenzy(), zaptest.NewLogger(t))
	r.Tick(5, nil)
	require.True(t, r.Active())
	_, err := owner.TakeDamage(10, nil)
	require.NoError(t, err)

	r.Tick(10, nil)
	assert.False(t, r.Active())
	assert.Equal(t, 0, owner.Store().Len())
	assert.Equal(t, 1, r.Activations())
}

func TestPropertyRunner_ModifiersPresentIffActive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		def := &ruleset.ActiveSkillDef{
			ID:       "s",
			Cooldown: rapid.Float64Range(0.1, 5).Draw(rt, "cooldown"),
			Duration: rapid.Float64Range(0, 5).Draw(rt, "duration"),
			Effects:  ruleset.SkillEffects{MoveSpeedMultiplier: 0.25},
		}
		owner := entity(1, 100)
		r := skill.NewRunner(owner, def, zap.NewNop())
		steps := rapid.SliceOfN(rapid.Float64Range(0, 1), 1, 100).Draw(rt, "steps")
		for _, dt := range steps {
			r.Tick(dt, nil)
			want := 0
			if r.Active() {
				want = 1
			}
			assert.Equal(rt, want, owner.Store().Count(stat.MoveSpeed, stat.Multiplier))
		}
	})
}
