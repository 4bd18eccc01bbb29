package match

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/arena/internal/game/arena"
)

// FighterState is one fighter's state at a snapshot.
type FighterState struct {
	Slot       int
	ClassID    string
	WeaponID   string
	HP         float64
	MaxHP      float64
	Pos        arena.Vec
	Speed      float64
	OrbitAngle float64
	OrbitSpeed float64
	Damage     float64
	Modifiers  int
	Dead       bool
}

// MarshalLogObject renders the state as structured log fields.
func (f FighterState) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("slot", f.Slot)
	enc.AddString("class", f.ClassID)
	enc.AddString("weapon", f.WeaponID)
	enc.AddFloat64("hp", f.HP)
	enc.AddFloat64("max_hp", f.MaxHP)
	enc.AddFloat64("x", f.Pos.X)
	enc.AddFloat64("y", f.Pos.Y)
	enc.AddFloat64("speed", f.Speed)
	enc.AddFloat64("orbit_angle", f.OrbitAngle)
	enc.AddFloat64("orbit_speed", f.OrbitSpeed)
	enc.AddFloat64("damage", f.Damage)
	enc.AddInt("modifiers", f.Modifiers)
	enc.AddBool("dead", f.Dead)
	return nil
}

// Snapshot is a point-in-time view of a match for debugging.
type Snapshot struct {
	MatchID  uuid.UUID
	Tick     int
	Elapsed  time.Duration
	Fighters [2]FighterState
}

// Snapshot captures the current state of both fighters. A dead fighter
// keeps its last known position.
func (m *Match) Snapshot() Snapshot {
	s := Snapshot{MatchID: m.ID, Tick: m.tick, Elapsed: m.Elapsed()}
	for slot, e := range m.entities {
		f := FighterState{
			Slot:       slot + 1,
			ClassID:    m.fighters[slot].ClassID,
			WeaponID:   m.fighters[slot].WeaponID,
			HP:         e.CurrentHP(),
			MaxHP:      e.MaxHP(),
			OrbitAngle: m.orbits[slot].Angle(),
			OrbitSpeed: m.orbits[slot].AngularSpeed(),
			Damage:     e.EffectiveDamage(),
			Modifiers:  e.Store().Len(),
			Dead:       e.IsDead(),
		}
		if b, ok := m.world.Body(e.ID()); ok {
			f.Pos = b.Pos
			f.Speed = b.Vel.Len()
		} else {
			f.Pos = m.lastPos[slot]
		}
		s.Fighters[slot] = f
	}
	return s
}

func (m *Match) logSnapshot() {
	s := m.Snapshot()
	m.logger.Debug("snapshot",
		zap.Int("tick", s.Tick),
		zap.Duration("elapsed", s.Elapsed),
		zap.Object("p1", s.Fighters[0]),
		zap.Object("p2", s.Fighters[1]),
	)
}
