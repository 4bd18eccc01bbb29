package ruleset

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/stat"
)

// WeaponStats is the base-stat block of a weapon.
type WeaponStats struct {
	Damage         *float64 `yaml:"damage" toml:"damage" json:"damage"`
	BaseAtkSpeed   *float64 `yaml:"base_atk_speed" toml:"base_atk_speed" json:"base_atk_speed"`
	SizeMultiplier *float64 `yaml:"size_multiplier" toml:"size_multiplier" json:"size_multiplier"`

	AtkSpeedMultiplier       float64 `yaml:"atk_speed_multiplier" toml:"atk_speed_multiplier" json:"atk_speed_multiplier"`
	DamageIncreaseFlat       float64 `yaml:"damage_increase_flat" toml:"damage_increase_flat" json:"damage_increase_flat"`
	DamageIncreaseMultiplier float64 `yaml:"damage_increase_multiplier" toml:"damage_increase_multiplier" json:"damage_increase_multiplier"`
}

// Base returns the stat values a weapon starts from.
func (w WeaponStats) Base() stat.Base {
	return stat.Base{
		stat.Damage:         deref(w.Damage, 0),
		stat.AtkSpeed:       deref(w.BaseAtkSpeed, DefaultAtkSpeed),
		stat.SizeMultiplier: deref(w.SizeMultiplier, DefaultSizeMultiplier),
	}
}

// Modifiers returns the standing modifiers a weapon is created with.
func (w WeaponStats) Modifiers() []*stat.Modifier {
	return keyedModifiers([]keyed{
		{"atk_speed_multiplier", w.AtkSpeedMultiplier},
		{"damage_increase_flat", w.DamageIncreaseFlat},
		{"damage_increase_multiplier", w.DamageIncreaseMultiplier},
	})
}

// WeaponDef is the static definition of an orbiting weapon.
type WeaponDef struct {
	ID        string      `yaml:"id" toml:"id" json:"id"`
	Name      string      `yaml:"name" toml:"name" json:"name"`
	BaseStats WeaponStats `yaml:"base_stats" toml:"base_stats" json:"base_stats"`
	Hitbox    *HitboxDef  `yaml:"hitbox" toml:"hitbox" json:"hitbox"`
}

// Validate reports fatal definition errors.
//
// Postcondition: returns nil iff the definition can be used to build a weapon.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if w.BaseStats.Damage != nil && *w.BaseStats.Damage < 0 {
		errs = append(errs, fmt.Errorf("damage must be >= 0, got %v", *w.BaseStats.Damage))
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon %q validation failed: %v", w.ID, errs)
	}
	return nil
}

// Normalize substitutes fallback values for missing optional fields, logging
// one warning per substitution.
func (w *WeaponDef) Normalize(logger *zap.Logger) {
	warn := func(field string, fallback any) {
		logger.Warn("weapon definition missing field, using fallback",
			zap.String("weapon", w.ID),
			zap.String("field", field),
			zap.Any("fallback", fallback),
		)
	}
	if w.Name == "" {
		w.Name = w.ID
	}
	defaultStat(&w.BaseStats.Damage, 0, "base_stats.damage", warn)
	defaultStat(&w.BaseStats.BaseAtkSpeed, DefaultAtkSpeed, "base_stats.base_atk_speed", warn)
	defaultStat(&w.BaseStats.SizeMultiplier, DefaultSizeMultiplier, "base_stats.size_multiplier", warn)
	w.Hitbox = w.Hitbox.normalize(logger, w.ID, BoxHitbox)
}
