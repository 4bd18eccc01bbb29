package arena

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// ErrUnknownBody is returned when an operation names a body that is not in the world.
var ErrUnknownBody = errors.New("unknown body")

// ContactKind distinguishes the two edges of a weapon overlap.
type ContactKind int

const (
	ContactBegan ContactKind = iota
	ContactEnded
)

// String returns "began" or "ended".
func (k ContactKind) String() string {
	if k == ContactEnded {
		return "ended"
	}
	return "began"
}

// Contact is a change in overlap between the weapon of OwnerID and the body
// of OtherID.
type Contact struct {
	Kind    ContactKind
	OwnerID int
	OtherID int
}

// Body is a circular fighter body.
type Body struct {
	ID     int
	Pos    Vec
	Vel    Vec
	Radius float64
}

// Sensor is a weapon shape held at Reach from its owner's centre, rotated to
// Angle. Box shapes lie along the radial direction.
type Sensor struct {
	OwnerID int
	Shape   ruleset.HitboxDef
	Reach   float64
	Angle   float64
}

// Centre returns the sensor's centre for an owner at pos.
func (s *Sensor) Centre(pos Vec) Vec {
	return pos.Add(FromAngle(s.Angle).Scale(s.Reach))
}

type pair struct {
	owner, other int
}

// World is the arena: an axis-aligned rectangle from (0,0) to
// (Width,Height) with perfectly elastic walls.
//
// It is not safe for concurrent use; the caller must serialise access.
type World struct {
	Width, Height float64

	bodies   map[int]*Body
	sensors  map[int]*Sensor
	touching map[pair]struct{}
}

// NewWorld creates an empty arena of the given size.
//
// Precondition: width and height must be > 0.
func NewWorld(width, height float64) *World {
	return &World{
		Width:    width,
		Height:   height,
		bodies:   make(map[int]*Body),
		sensors:  make(map[int]*Sensor),
		touching: make(map[pair]struct{}),
	}
}

// AddBody places a new body. Its position is clamped inside the walls.
func (w *World) AddBody(id int, pos Vec, radius float64) (*Body, error) {
	if _, ok := w.bodies[id]; ok {
		return nil, fmt.Errorf("adding body %d: already present", id)
	}
	b := &Body{ID: id, Pos: pos, Radius: radius}
	w.clamp(b)
	w.bodies[id] = b
	return b, nil
}

// Body returns the body with id.
func (w *World) Body(id int) (*Body, bool) {
	b, ok := w.bodies[id]
	return b, ok
}

// RemoveBody deletes a body, its sensor and every contact involving either.
// No ended contacts are reported for them.
func (w *World) RemoveBody(id int) {
	delete(w.bodies, id)
	delete(w.sensors, id)
	for p := range w.touching {
		if p.owner == id || p.other == id {
			delete(w.touching, p)
		}
	}
}

// SetSpeed rescales the body's velocity to speed while keeping its heading.
// A stationary body is launched along heading.
func (w *World) SetSpeed(id int, speed, heading float64) error {
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("setting speed of %d: %w", id, ErrUnknownBody)
	}
	dir := b.Vel.Normalize()
	if dir == (Vec{}) {
		dir = FromAngle(heading)
	}
	b.Vel = dir.Scale(math.Max(speed, 0))
	return nil
}

// SetSensor attaches or replaces the weapon sensor of ownerID.
func (w *World) SetSensor(ownerID int, shape ruleset.HitboxDef, reach float64) error {
	if _, ok := w.bodies[ownerID]; !ok {
		return fmt.Errorf("attaching sensor to %d: %w", ownerID, ErrUnknownBody)
	}
	angle := 0.0
	if prev, ok := w.sensors[ownerID]; ok {
		angle = prev.Angle
	}
	w.sensors[ownerID] = &Sensor{OwnerID: ownerID, Shape: shape, Reach: reach, Angle: angle}
	return nil
}

// Sensor returns the weapon sensor of ownerID.
func (w *World) Sensor(ownerID int) (*Sensor, bool) {
	s, ok := w.sensors[ownerID]
	return s, ok
}

// SetSensorAngle rotates ownerID's weapon to angle.
func (w *World) SetSensorAngle(ownerID int, angle float64) {
	if s, ok := w.sensors[ownerID]; ok {
		s.Angle = angle
	}
}

// Step advances every body by dt seconds, resolves wall and body collisions,
// then returns weapon contacts that began or ended since the previous Step.
// Contacts are ordered by owner ID, then other ID.
//
// Postcondition: every body lies inside the walls; a began contact for a
// pair is always reported before its ended contact.
func (w *World) Step(dt float64) []Contact {
	ids := w.ids()
	for _, id := range ids {
		b := w.bodies[id]
		b.Pos = b.Pos.Add(b.Vel.Scale(dt))
		w.bounce(b)
	}
	for i, a := range ids {
		for _, c := range ids[i+1:] {
			collide(w.bodies[a], w.bodies[c])
		}
	}
	for _, id := range ids {
		w.clamp(w.bodies[id])
	}
	return w.diffContacts(ids)
}

func (w *World) ids() []int {
	ids := make([]int, 0, len(w.bodies))
	for id := range w.bodies {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (w *World) bounce(b *Body) {
	if b.Pos.X-b.Radius < 0 && b.Vel.X < 0 || b.Pos.X+b.Radius > w.Width && b.Vel.X > 0 {
		b.Vel.X = -b.Vel.X
	}
	if b.Pos.Y-b.Radius < 0 && b.Vel.Y < 0 || b.Pos.Y+b.Radius > w.Height && b.Vel.Y > 0 {
		b.Vel.Y = -b.Vel.Y
	}
	w.clamp(b)
}

func (w *World) clamp(b *Body) {
	b.Pos.X = clampRange(b.Pos.X, b.Radius, w.Width-b.Radius, w.Width/2)
	b.Pos.Y = clampRange(b.Pos.Y, b.Radius, w.Height-b.Radius, w.Height/2)
}

func clampRange(v, lo, hi, mid float64) float64 {
	if lo > hi {
		return mid
	}
	return math.Min(math.Max(v, lo), hi)
}

// collide separates two overlapping bodies and exchanges the normal
// components of their velocities, as for an elastic collision of equal masses.
func collide(a, b *Body) {
	delta := b.Pos.Sub(a.Pos)
	dist := delta.Len()
	minDist := a.Radius + b.Radius
	if dist >= minDist {
		return
	}
	n := delta.Normalize()
	if n == (Vec{}) {
		n = Vec{1, 0}
	}
	overlap := minDist - dist
	a.Pos = a.Pos.Sub(n.Scale(overlap / 2))
	b.Pos = b.Pos.Add(n.Scale(overlap / 2))

	approach := a.Vel.Sub(b.Vel).Dot(n)
	if approach <= 0 {
		return
	}
	a.Vel = a.Vel.Sub(n.Scale(approach))
	b.Vel = b.Vel.Add(n.Scale(approach))
}

func (w *World) diffContacts(ids []int) []Contact {
	now := make(map[pair]struct{})
	for _, owner := range ids {
		s, ok := w.sensors[owner]
		if !ok {
			continue
		}
		centre := s.Centre(w.bodies[owner].Pos)
		for _, other := range ids {
			if other == owner {
				continue
			}
			if Overlaps(s.Shape, centre, s.Angle, w.bodies[other]) {
				now[pair{owner, other}] = struct{}{}
			}
		}
	}

	var out []Contact
	for p := range now {
		if _, was := w.touching[p]; !was {
			out = append(out, Contact{Kind: ContactBegan, OwnerID: p.owner, OtherID: p.other})
		}
	}
	for p := range w.touching {
		if _, is := now[p]; !is {
			out = append(out, Contact{Kind: ContactEnded, OwnerID: p.owner, OtherID: p.other})
		}
	}
	w.touching = now
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerID != out[j].OwnerID {
			return out[i].OwnerID < out[j].OwnerID
		}
		return out[i].OtherID < out[j].OtherID
	})
	return out
}

// Overlaps reports whether a weapon shape centred at centre and rotated by
// angle intersects body.
func Overlaps(shape ruleset.HitboxDef, centre Vec, angle float64, body *Body) bool {
	switch shape.Type {
	case ruleset.CircleHitbox:
		return body.Pos.Sub(centre).Len() <= shape.Radius+body.Radius
	default:
		local := body.Pos.Sub(centre).Rotate(-angle)
		hw, hh := shape.Width/2, shape.Height/2
		closest := Vec{
			X: math.Min(math.Max(local.X, -hw), hw),
			Y: math.Min(math.Max(local.Y, -hh), hh),
		}
		return local.Sub(closest).Len() <= body.Radius
	}
}
