package ruleset

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/arena/internal/game/stat"
)

// SkillEffects lists what an active skill does while it is running.
type SkillEffects struct {
	AtkSpeedMultiplier       float64 `yaml:"atk_speed_multiplier" toml:"atk_speed_multiplier" json:"atk_speed_multiplier"`
	MoveSpeedMultiplier      float64 `yaml:"move_speed_multiplier" toml:"move_speed_multiplier" json:"move_speed_multiplier"`
	SizeMultiplier           float64 `yaml:"size_multiplier" toml:"size_multiplier" json:"size_multiplier"`
	DamageIncreaseFlat       float64 `yaml:"damage_increase_flat" toml:"damage_increase_flat" json:"damage_increase_flat"`
	DamageIncreaseMultiplier float64 `yaml:"damage_increase_multiplier" toml:"damage_increase_multiplier" json:"damage_increase_multiplier"`
	HealOnActivate           float64 `yaml:"heal_on_activate" toml:"heal_on_activate" json:"heal_on_activate"`

	PoisonAllArena        bool    `yaml:"poison_all_arena" toml:"poison_all_arena" json:"poison_all_arena"`
	PoisonDamagePerSecond float64 `yaml:"poison_damage_per_second" toml:"poison_damage_per_second" json:"poison_damage_per_second"`
	// Lifesteal is the fraction of damage dealt returned to the attacker as HP.
	Lifesteal float64 `yaml:"lifesteal" toml:"lifesteal" json:"lifesteal"`
}

// Modifiers returns fresh modifiers for the stat effects. Each activation
// must call this again so that removal by identity only affects its own set.
func (e SkillEffects) Modifiers() []*stat.Modifier {
	return keyedModifiers([]keyed{
		{"atk_speed_multiplier", e.AtkSpeedMultiplier},
		{"move_speed_multiplier", e.MoveSpeedMultiplier},
		{"size_multiplier", e.SizeMultiplier},
		{"damage_increase_flat", e.DamageIncreaseFlat},
		{"damage_increase_multiplier", e.DamageIncreaseMultiplier},
	})
}

// ActiveSkillDef is a class skill that fires automatically every Cooldown
// seconds and lasts Duration seconds.
type ActiveSkillDef struct {
	ID       string       `yaml:"id" toml:"id" json:"id"`
	Name     string       `yaml:"name" toml:"name" json:"name"`
	Cooldown float64      `yaml:"cooldown" toml:"cooldown" json:"cooldown"`
	Duration float64      `yaml:"duration" toml:"duration" json:"duration"`
	Effects  SkillEffects `yaml:"effects" toml:"effects" json:"effects"`
}

// Validate reports fatal skill definition errors.
func (s *ActiveSkillDef) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("active_skill.id must not be empty"))
	}
	if s.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("active_skill.cooldown must be > 0, got %v", s.Cooldown))
	}
	if s.Duration < 0 {
		errs = append(errs, fmt.Errorf("active_skill.duration must be >= 0, got %v", s.Duration))
	}
	if s.Effects.Lifesteal < 0 {
		errs = append(errs, fmt.Errorf("active_skill.effects.lifesteal must be >= 0, got %v", s.Effects.Lifesteal))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%v", errs)
	}
	return nil
}
