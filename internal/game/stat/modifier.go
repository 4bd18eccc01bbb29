// Package stat implements the additive/multiplicative modifier accumulator
// that turns base stats plus stacking buffs and debuffs into effective stats.
package stat

import "strings"

// Name identifies a stat. The recognised names form a fixed enumeration; any
// other Name is inert and never matches a lookup.
type Name string

const (
	HP                 Name = "hp"
	MoveSpeed          Name = "moveSpeed"
	Damage             Name = "damage"
	AtkSpeed           Name = "atkSpeed"
	Defense            Name = "defense"
	CriticalChance     Name = "criticalChance"
	CriticalMultiplier Name = "criticalMultiplier"
	SizeMultiplier     Name = "sizeMultiplier"
)

// Names lists every recognised stat in display order.
var Names = []Name{HP, MoveSpeed, Damage, AtkSpeed, Defense, CriticalChance, CriticalMultiplier, SizeMultiplier}

// Known reports whether n belongs to the stat enumeration.
func (n Name) Known() bool {
	for _, k := range Names {
		if k == n {
			return true
		}
	}
	return false
}

// Kind distinguishes additive from multiplicative modifiers.
type Kind int

const (
	Flat Kind = iota
	Multiplier
)

// String returns "flat" or "multiplier".
func (k Kind) String() string {
	switch k {
	case Flat:
		return "flat"
	case Multiplier:
		return "multiplier"
	default:
		return "unknown"
	}
}

// Modifier is a single stat adjustment. Modifiers are immutable once created;
// the pointer identity is what Store.Remove matches on.
type Modifier struct {
	Stat  Name
	Value float64
	Kind  Kind
}

// NewModifier returns a new Modifier.
func NewModifier(name Name, value float64, kind Kind) *Modifier {
	return &Modifier{Stat: name, Value: value, Kind: kind}
}

// KindForKey classifies a definition key: any key containing "multiplier"
// (case-insensitive) is a Multiplier, everything else is Flat.
func KindForKey(key string) Kind {
	if strings.Contains(strings.ToLower(key), "multiplier") {
		return Multiplier
	}
	return Flat
}

// aliases maps normalised stat prefixes that do not spell a stat name directly.
var aliases = map[string]Name{
	"criticaldamage": CriticalMultiplier,
	"critdamage":     CriticalMultiplier,
	"critchance":     CriticalChance,
	"attackspeed":    AtkSpeed,
	"speed":          MoveSpeed,
	"size":           SizeMultiplier,
	"health":         HP,
}

// suffixes are stripped, longest first, when a key does not name a stat directly.
var suffixes = []string{"increasemultiplier", "increaseflat", "multiplier", "increase", "flat"}

func normalise(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(key, "_", ""), "-", ""))
}

func lookup(norm string) (Name, bool) {
	for _, n := range Names {
		if normalise(string(n)) == norm {
			return n, true
		}
	}
	if n, ok := aliases[norm]; ok {
		return n, true
	}
	return "", false
}

// ParseKey resolves a definition key such as "atk_speed_increase_flat",
// "damageIncreaseMultiplier" or "criticalChance" to the stat it modifies and
// the modifier kind. Both snake_case and camelCase keys are accepted.
//
// Postcondition: kind == KindForKey(key). When ok is false, name is Name(key)
// and the resulting modifier is inert.
func ParseKey(key string) (name Name, kind Kind, ok bool) {
	kind = KindForKey(key)
	norm := normalise(key)
	if n, found := lookup(norm); found {
		return n, kind, true
	}
	for _, suffix := range suffixes {
		if strings.HasSuffix(norm, suffix) && len(norm) > len(suffix) {
			if n, found := lookup(strings.TrimSuffix(norm, suffix)); found {
				return n, kind, true
			}
		}
	}
	return Name(key), kind, false
}

// FromKey builds a Modifier for a definition key/value pair using ParseKey.
// The returned bool reports whether the key named a recognised stat.
func FromKey(key string, value float64) (*Modifier, bool) {
	name, kind, ok := ParseKey(key)
	return NewModifier(name, value, kind), ok
}
