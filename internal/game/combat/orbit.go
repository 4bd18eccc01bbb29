package combat

import "math"

// DefaultBaseRate is the orbit angular speed, in radians per second, of a
// weapon with an effective attack speed of 1.
const DefaultBaseRate = 5.0

// AttackSpeedModifiers supplies the owner's attack-speed modifier totals.
// *Entity satisfies it.
type AttackSpeedModifiers interface {
	AtkSpeedModifiers() (flat, mult float64)
}

// Orbit advances a weapon around its owner at a speed derived from the
// weapon's attack speed and the owner's attack-speed modifiers.
//
// Invariant: 0 <= Angle() < 2π.
type Orbit struct {
	weapon   *Weapon
	owner    AttackSpeedModifiers
	baseRate float64

	angle        float64
	angularSpeed float64
}

// NewOrbit creates an orbit for weapon around owner starting at angle 0.
// A non-positive baseRate is replaced with DefaultBaseRate.
//
// Precondition: weapon and owner must not be nil.
func NewOrbit(weapon *Weapon, owner AttackSpeedModifiers, baseRate float64) *Orbit {
	if !(baseRate > 0) {
		baseRate = DefaultBaseRate
	}
	o := &Orbit{weapon: weapon, owner: owner, baseRate: baseRate}
	o.Recompute()
	return o
}

// Recompute refreshes the angular speed from current stats:
//
//	baseRate × (weapon.CurrentAtkSpeed() + Σflat) × (1 + Σmultiplier)
//
// Postcondition: AngularSpeed() reflects every modifier present at call time.
func (o *Orbit) Recompute() float64 {
	flat, mult := o.owner.AtkSpeedModifiers()
	o.angularSpeed = o.baseRate * (o.weapon.CurrentAtkSpeed() + flat) * (1 + mult)
	return o.angularSpeed
}

// Update recomputes the angular speed and advances the angle by dt seconds.
//
// Precondition: dt >= 0.
func (o *Orbit) Update(dt float64) float64 {
	o.Recompute()
	return o.Advance(dt)
}

// Advance moves the angle by AngularSpeed()×dt without recomputing and
// returns the new angle.
func (o *Orbit) Advance(dt float64) float64 {
	o.angle = wrapAngle(o.angle + o.angularSpeed*dt)
	return o.angle
}

// SetAngle places the weapon at a, wrapped into [0, 2π).
func (o *Orbit) SetAngle(a float64) {
	o.angle = wrapAngle(a)
}

// Angle returns the current orbit angle in radians.
func (o *Orbit) Angle() float64 { return o.angle }

// AngularSpeed returns the last computed angular speed in radians per second.
func (o *Orbit) AngularSpeed() float64 { return o.angularSpeed }

// Weapon returns the orbiting weapon.
func (o *Orbit) Weapon() *Weapon { return o.weapon }

func wrapAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
