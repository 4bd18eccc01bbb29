package ruleset

import "go.uber.org/zap"

// HitboxType selects the collision shape of a body or weapon.
type HitboxType string

const (
	BoxHitbox    HitboxType = "box"
	CircleHitbox HitboxType = "circle"
)

// Hitbox fallback dimensions.
const (
	DefaultBoxWidth     = 64.0
	DefaultBoxHeight    = 8.0
	DefaultCircleRadius = 32.0
)

// HitboxDef describes a collision shape. Anchor offsets are accepted for
// compatibility with older content and ignored: shapes are always centred so
// they rotate with the orbit.
type HitboxDef struct {
	Type    HitboxType `yaml:"type" toml:"type" json:"type"`
	Width   float64    `yaml:"width" toml:"width" json:"width"`
	Height  float64    `yaml:"height" toml:"height" json:"height"`
	AnchorX float64    `yaml:"anchor_x" toml:"anchor_x" json:"anchor_x"`
	AnchorY float64    `yaml:"anchor_y" toml:"anchor_y" json:"anchor_y"`
	Radius  float64    `yaml:"radius" toml:"radius" json:"radius"`
}

// normalize returns a hitbox with a known type and positive dimensions. A nil
// receiver yields the default shape of kind without a warning; an unknown type
// is reported and replaced by a default box.
func (h *HitboxDef) normalize(logger *zap.Logger, owner string, kind HitboxType) *HitboxDef {
	if h == nil {
		out := &HitboxDef{Type: kind}
		out.fill()
		return out
	}
	out := *h
	switch out.Type {
	case BoxHitbox, CircleHitbox:
	default:
		logger.Warn("unknown hitbox type, using box",
			zap.String("definition", owner),
			zap.String("type", string(out.Type)),
		)
		out.Type = BoxHitbox
	}
	out.fill()
	return &out
}

func (h *HitboxDef) fill() {
	switch h.Type {
	case BoxHitbox:
		if h.Width <= 0 {
			h.Width = DefaultBoxWidth
		}
		if h.Height <= 0 {
			h.Height = DefaultBoxHeight
		}
	case CircleHitbox:
		if h.Radius <= 0 {
			h.Radius = DefaultCircleRadius
		}
	}
}
