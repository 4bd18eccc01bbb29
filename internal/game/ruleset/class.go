// Package ruleset defines the immutable class and weapon definitions that
// matches are built from, and the loaders that read them.
package ruleset

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/stat"
)

// Fallback values substituted when a definition omits a required stat.
const (
	DefaultHP                 = 100.0
	DefaultMoveSpeed          = 100.0
	DefaultSizeMultiplier     = 1.0
	DefaultCriticalMultiplier = 1.0
	DefaultAtkSpeed           = 1.0
)

// CharacterStats is the base-stat block of a class.
// Pointer fields are required; a nil value is reported and defaulted by Normalize.
type CharacterStats struct {
	HP                 *float64 `yaml:"hp" toml:"hp" json:"hp"`
	MoveSpeed          *float64 `yaml:"move_speed" toml:"move_speed" json:"move_speed"`
	SizeMultiplier     *float64 `yaml:"size_multiplier" toml:"size_multiplier" json:"size_multiplier"`
	CriticalChance     float64  `yaml:"critical_chance" toml:"critical_chance" json:"critical_chance"`
	CriticalMultiplier *float64 `yaml:"critical_multiplier" toml:"critical_multiplier" json:"critical_multiplier"`

	CriticalDamageIncreaseMultiplier float64 `yaml:"critical_damage_increase_multiplier" toml:"critical_damage_increase_multiplier" json:"critical_damage_increase_multiplier"`

	MoveSpeedIncreaseFlat float64 `yaml:"move_speed_increase_flat" toml:"move_speed_increase_flat" json:"move_speed_increase_flat"`
	AtkSpeedIncreaseFlat  float64 `yaml:"atk_speed_increase_flat" toml:"atk_speed_increase_flat" json:"atk_speed_increase_flat"`
	DefenseIncreaseFlat   float64 `yaml:"defense_increase_flat" toml:"defense_increase_flat" json:"defense_increase_flat"`
	DamageIncreaseFlat    float64 `yaml:"damage_increase_flat" toml:"damage_increase_flat" json:"damage_increase_flat"`

	MoveSpeedIncreaseMultiplier float64 `yaml:"move_speed_increase_multiplier" toml:"move_speed_increase_multiplier" json:"move_speed_increase_multiplier"`
	AtkSpeedIncreaseMultiplier  float64 `yaml:"atk_speed_increase_multiplier" toml:"atk_speed_increase_multiplier" json:"atk_speed_increase_multiplier"`
	DefenseIncreaseMultiplier   float64 `yaml:"defense_increase_multiplier" toml:"defense_increase_multiplier" json:"defense_increase_multiplier"`
	DamageIncreaseMultiplier    float64 `yaml:"damage_increase_multiplier" toml:"damage_increase_multiplier" json:"damage_increase_multiplier"`
}

// Base returns the stat values a character starts from.
//
// Precondition: Normalize has been called.
func (c CharacterStats) Base() stat.Base {
	return stat.Base{
		stat.HP:                 deref(c.HP, DefaultHP),
		stat.MoveSpeed:          deref(c.MoveSpeed, DefaultMoveSpeed),
		stat.SizeMultiplier:     deref(c.SizeMultiplier, DefaultSizeMultiplier),
		stat.CriticalChance:     c.CriticalChance,
		stat.CriticalMultiplier: deref(c.CriticalMultiplier, DefaultCriticalMultiplier),
	}
}

// Modifiers returns the standing modifiers a character is created with, one
// per non-zero *_increase_* field.
func (c CharacterStats) Modifiers() []*stat.Modifier {
	return keyedModifiers([]keyed{
		{"critical_damage_increase_multiplier", c.CriticalDamageIncreaseMultiplier},
		{"move_speed_increase_flat", c.MoveSpeedIncreaseFlat},
		{"atk_speed_increase_flat", c.AtkSpeedIncreaseFlat},
		{"defense_increase_flat", c.DefenseIncreaseFlat},
		{"damage_increase_flat", c.DamageIncreaseFlat},
		{"move_speed_increase_multiplier", c.MoveSpeedIncreaseMultiplier},
		{"atk_speed_increase_multiplier", c.AtkSpeedIncreaseMultiplier},
		{"defense_increase_multiplier", c.DefenseIncreaseMultiplier},
		{"damage_increase_multiplier", c.DamageIncreaseMultiplier},
	})
}

// ClassDef is the static definition of a playable class.
type ClassDef struct {
	ID          string             `yaml:"id" toml:"id" json:"id"`
	Name        string             `yaml:"name" toml:"name" json:"name"`
	Description string             `yaml:"description" toml:"description" json:"description"`
	BaseStats   CharacterStats     `yaml:"base_stats" toml:"base_stats" json:"base_stats"`
	Hitbox      *HitboxDef         `yaml:"hitbox" toml:"hitbox" json:"hitbox"`
	ActiveSkill *ActiveSkillDef    `yaml:"active_skill" toml:"active_skill" json:"active_skill"`
	OnHitGiven  map[string]float64 `yaml:"on_hit_given" toml:"on_hit_given" json:"on_hit_given"`
	OnHitTaken  map[string]float64 `yaml:"on_hit_taken" toml:"on_hit_taken" json:"on_hit_taken"`
	// Script names a Lua file, relative to the script root, providing on_hit/on_death hooks.
	Script string `yaml:"script" toml:"script" json:"script"`
}

// Validate reports fatal definition errors.
//
// Postcondition: returns nil iff the definition can be used to build an entity.
func (c *ClassDef) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if c.BaseStats.HP != nil && *c.BaseStats.HP <= 0 {
		errs = append(errs, fmt.Errorf("hp must be > 0, got %v", *c.BaseStats.HP))
	}
	if c.ActiveSkill != nil {
		if err := c.ActiveSkill.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("class %q validation failed: %v", c.ID, errs)
	}
	return nil
}

// Normalize substitutes fallback values for missing or malformed optional
// fields, logging one warning per substitution.
//
// Postcondition: every required stat pointer is non-nil; Name is non-empty.
func (c *ClassDef) Normalize(logger *zap.Logger) {
	warn := func(field string, fallback any) {
		logger.Warn("class definition missing field, using fallback",
			zap.String("class", c.ID),
			zap.String("field", field),
			zap.Any("fallback", fallback),
		)
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	defaultStat(&c.BaseStats.HP, DefaultHP, "base_stats.hp", warn)
	defaultStat(&c.BaseStats.MoveSpeed, DefaultMoveSpeed, "base_stats.move_speed", warn)
	defaultStat(&c.BaseStats.SizeMultiplier, DefaultSizeMultiplier, "base_stats.size_multiplier", warn)
	defaultStat(&c.BaseStats.CriticalMultiplier, DefaultCriticalMultiplier, "base_stats.critical_multiplier", warn)
	if c.BaseStats.CriticalChance < 0 || c.BaseStats.CriticalChance > 1 {
		logger.Warn("class critical_chance out of range, clamping",
			zap.String("class", c.ID),
			zap.Float64("critical_chance", c.BaseStats.CriticalChance),
		)
		c.BaseStats.CriticalChance = clamp01(c.BaseStats.CriticalChance)
	}
	c.Hitbox = c.Hitbox.normalize(logger, c.ID, CircleHitbox)
	warnInertKeys(logger, c.ID, "on_hit_given", c.OnHitGiven)
	warnInertKeys(logger, c.ID, "on_hit_taken", c.OnHitTaken)
}

func warnInertKeys(logger *zap.Logger, id, field string, table map[string]float64) {
	for key := range table {
		if _, _, ok := stat.ParseKey(key); !ok {
			logger.Warn("on-hit key names no known stat; modifier will be inert",
				zap.String("definition", id),
				zap.String("field", field),
				zap.String("key", key),
			)
		}
	}
}

type keyed struct {
	key   string
	value float64
}

func keyedModifiers(entries []keyed) []*stat.Modifier {
	var out []*stat.Modifier
	for _, e := range entries {
		if e.value == 0 {
			continue
		}
		mod, _ := stat.FromKey(e.key, e.value)
		out = append(out, mod)
	}
	return out
}

func deref(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func defaultStat(p **float64, fallback float64, field string, warn func(string, any)) {
	if *p != nil {
		return
	}
	v := fallback
	*p = &v
	warn(field, fallback)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
