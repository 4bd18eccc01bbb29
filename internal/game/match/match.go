// Package match runs one 1v1 arena bout: it places two fighters in an
// arena.World, turns weapon contacts into strikes through a combat.Arbiter,
// drives orbits and active skills every tick, and reports the outcome.
package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/skill"
	"github.com/cory-johannsen/arena/internal/scripting"
)

// ErrFinished is returned by Run when the match has already been played.
var ErrFinished = errors.New("match already finished")

// Options carries a match's collaborators. Scripts and Results may be nil.
type Options struct {
	Random  dice.Source
	Scripts *scripting.Manager
	Results ResultStore
	Logger  *zap.Logger
}

// Match is a single bout between two fighters.
//
// A Match is driven from one goroutine; it is not safe for concurrent use.
type Match struct {
	ID uuid.UUID

	cfg     config.MatchConfig
	logger  *zap.Logger
	rnd     dice.Source
	scripts *scripting.Manager
	results ResultStore

	world   *arena.World
	arbiter *combat.Arbiter

	fighters [2]Fighter
	entities [2]*combat.Entity
	orbits   [2]*combat.Orbit
	headings [2]float64
	radii    [2]float64
	lastPos  [2]arena.Vec
	skills   []*skill.Runner

	tick     int
	maxTicks int
	started  time.Time
	result   *Result
}

// New builds a match ready to tick. Fighter slot i becomes entity i+1.
//
// Precondition: cfg has passed config validation; both fighters are resolved.
// Postcondition: both fighters stand at their spawn points moving on a random
// heading with their weapons at a random orbit angle.
func New(cfg config.MatchConfig, fighters [2]Fighter, opts Options) (*Match, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Random == nil {
		opts.Random = dice.NewCryptoSource()
	}
	id := uuid.New()
	logger := opts.Logger.With(zap.String("match", id.String()))

	m := &Match{
		ID:       id,
		cfg:      cfg,
		logger:   logger,
		rnd:      opts.Random,
		scripts:  opts.Scripts,
		results:  opts.Results,
		world:    arena.NewWorld(cfg.ArenaWidth, cfg.ArenaHeight),
		arbiter:  combat.NewArbiter(combat.NewOnHitApplier(logger), opts.Random, logger),
		fighters: fighters,
		maxTicks: int(math.Ceil(cfg.MaxDuration.Seconds() * float64(cfg.TickRate))),
		started:  time.Now(),
	}

	spawns := [2]arena.Vec{
		{X: cfg.ArenaWidth / 4, Y: cfg.ArenaHeight / 2},
		{X: cfg.ArenaWidth * 3 / 4, Y: cfg.ArenaHeight / 2},
	}
	for i, f := range fighters {
		if f.Class == nil || f.Weapon == nil {
			return nil, fmt.Errorf("building match: player %d is not resolved", i+1)
		}
		if err := m.place(i, f, spawns[i]); err != nil {
			return nil, fmt.Errorf("building match: player %d: %w", i+1, err)
		}
	}
	if m.scripts != nil {
		m.bindScripts()
	}

	logger.Info("match created",
		zap.String("p1_class", fighters[0].ClassID),
		zap.String("p1_weapon", fighters[0].WeaponID),
		zap.String("p2_class", fighters[1].ClassID),
		zap.String("p2_weapon", fighters[1].WeaponID),
	)
	return m, nil
}

func (m *Match) place(slot int, f Fighter, spawn arena.Vec) error {
	id := slot + 1
	e := combat.NewEntityFromClass(id, f.Class)
	if _, err := e.Equip(combat.NewWeaponFromDef(id, f.Weapon)); err != nil {
		return err
	}
	if err := m.arbiter.Register(e); err != nil {
		return err
	}
	e.OnDeath(m.onDeath)

	m.radii[slot] = bodyRadius(f.Class.Hitbox)
	if _, err := m.world.AddBody(id, spawn, m.bodyRadius(slot, e)); err != nil {
		return err
	}
	if err := m.world.SetSensor(id, m.weaponShape(e), m.reach(e)); err != nil {
		return err
	}
	m.headings[slot] = dice.Angle(m.rnd)
	if err := m.world.SetSpeed(id, m.speed(e), m.headings[slot]); err != nil {
		return err
	}

	orbit := combat.NewOrbit(e.Weapon(), e, m.cfg.BaseOrbitRate)
	orbit.SetAngle(dice.Angle(m.rnd))
	m.world.SetSensorAngle(id, orbit.Angle())

	m.entities[slot] = e
	m.orbits[slot] = orbit

	if def := f.Class.ActiveSkill; def != nil {
		r := skill.NewRunner(e, def, m.logger)
		m.skills = append(m.skills, r)
		m.arbiter.Observe(r)
	}
	return nil
}

// Entity returns the combat entity in slot 1 or 2.
func (m *Match) Entity(slot int) *combat.Entity {
	if slot < 1 || slot > 2 {
		return nil
	}
	return m.entities[slot-1]
}

// Ticks returns the number of ticks played.
func (m *Match) Ticks() int { return m.tick }

// Elapsed returns the simulated time played.
func (m *Match) Elapsed() time.Duration {
	return time.Duration(float64(m.tick) / float64(m.cfg.TickRate) * float64(time.Second))
}

// Finished reports whether the match has an outcome.
func (m *Match) Finished() bool { return m.result != nil }

// Result returns the outcome, or false while the match is still running.
func (m *Match) Result() (Result, bool) {
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

// Tick advances the match by one fixed step: movement speeds and weapon
// orbits are refreshed from current stats, the world steps, contacts are
// arbitrated in order, then active skills run.
//
// Postcondition: returns true once the match has an outcome; further calls
// are no-ops.
func (m *Match) Tick() bool {
	if m.result != nil {
		return true
	}
	dt := 1 / float64(m.cfg.TickRate)

	for slot, e := range m.entities {
		if e.IsDead() {
			continue
		}
		id := e.ID()
		if b, ok := m.world.Body(id); ok {
			b.Radius = m.bodyRadius(slot, e)
		}
		if err := m.world.SetSpeed(id, m.speed(e), m.headings[slot]); err != nil {
			m.logger.Error("refreshing speed", zap.Int("entity", id), zap.Error(err))
		}
		if err := m.world.SetSensor(id, m.weaponShape(e), m.reach(e)); err != nil {
			m.logger.Error("refreshing weapon", zap.Int("entity", id), zap.Error(err))
		}
		m.world.SetSensorAngle(id, m.orbits[slot].Update(dt))
	}

	for _, c := range m.world.Step(dt) {
		switch c.Kind {
		case arena.ContactBegan:
			m.arbiter.ContactBegan(c.OwnerID, c.OtherID)
		case arena.ContactEnded:
			m.arbiter.ContactEnded(c.OwnerID, c.OtherID)
		}
	}

	opponents := m.entities[:]
	for _, r := range m.skills {
		r.Tick(dt, opponents)
	}

	m.tick++
	if every := m.cfg.SnapshotEvery; every > 0 && m.tick%every == 0 {
		m.logSnapshot()
	}
	m.settle()
	return m.result != nil
}

// Run ticks until the match has an outcome or ctx is cancelled. In realtime
// mode ticks are paced by a wall-clock ticker; otherwise they run back to
// back. A finished match is saved to the result store when one is set.
//
// Postcondition: on a nil error the returned Result is final.
func (m *Match) Run(ctx context.Context) (Result, error) {
	if m.result != nil {
		return *m.result, ErrFinished
	}
	m.started = time.Now()
	m.logger.Info("match started",
		zap.Int("tick_rate", m.cfg.TickRate),
		zap.Bool("realtime", m.cfg.Realtime),
		zap.Duration("max_duration", m.cfg.MaxDuration),
	)

	var pace <-chan time.Time
	if m.cfg.Realtime {
		ticker := time.NewTicker(m.cfg.TickInterval())
		defer ticker.Stop()
		pace = ticker.C
	}

	for !m.Tick() {
		if pace != nil {
			select {
			case <-ctx.Done():
				return Result{}, fmt.Errorf("match %s interrupted at tick %d: %w", m.ID, m.tick, ctx.Err())
			case <-pace:
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("match %s interrupted at tick %d: %w", m.ID, m.tick, err)
		}
	}

	res := *m.result
	if m.results != nil {
		if err := m.results.SaveResult(ctx, res); err != nil {
			return res, fmt.Errorf("saving result of match %s: %w", m.ID, err)
		}
		m.logger.Debug("match result saved")
	}
	return res, nil
}

func (m *Match) onDeath(dead *combat.Entity, source combat.DamageSource) {
	killer := 0
	if source != nil {
		killer = source.OwnerID()
	}
	m.logger.Info("fighter died",
		zap.Int("entity", dead.ID()),
		zap.String("class", dead.ClassID()),
		zap.Int("killer", killer),
		zap.Int("tick", m.tick),
	)
	if b, ok := m.world.Body(dead.ID()); ok {
		m.lastPos[dead.ID()-1] = b.Pos
	}
	m.world.RemoveBody(dead.ID())
	m.arbiter.Remove(dead.ID())
	if m.scripts != nil {
		m.scripts.OnDeath(entityInfo(dead))
	}
}

// settle records an outcome once one fighter is left standing, both have
// fallen, or the time limit is reached. Deaths within the same tick are a draw.
func (m *Match) settle() {
	var alive []int
	for slot, e := range m.entities {
		if !e.IsDead() {
			alive = append(alive, slot+1)
		}
	}
	switch {
	case len(alive) == 1:
		m.finish(OutcomeWin, alive[0])
	case len(alive) == 0:
		m.finish(OutcomeDraw, 0)
	case m.maxTicks > 0 && m.tick >= m.maxTicks:
		m.finish(OutcomeDraw, 0)
	}
}

func (m *Match) finish(outcome Outcome, winner int) {
	res := Result{
		MatchID:    m.ID,
		Fighters:   [2]Loadout{m.fighters[0].Loadout, m.fighters[1].Loadout},
		Outcome:    outcome,
		Winner:     winner,
		HP:         [2]float64{m.entities[0].CurrentHP(), m.entities[1].CurrentHP()},
		Ticks:      m.tick,
		Simulated:  m.Elapsed(),
		StartedAt:  m.started,
		FinishedAt: time.Now(),
	}
	m.result = &res
	m.logger.Info("match finished",
		zap.String("outcome", string(outcome)),
		zap.Int("winner", winner),
		zap.Int("ticks", res.Ticks),
		zap.Duration("simulated", res.Simulated),
		zap.Float64("p1_hp", res.HP[0]),
		zap.Float64("p2_hp", res.HP[1]),
	)
}

func (m *Match) speed(e *combat.Entity) float64 {
	return e.Sheet().MoveSpeed() * m.cfg.MoveSpeedScale
}

func (m *Match) bodyRadius(slot int, e *combat.Entity) float64 {
	return m.radii[slot] * sizeOf(e.Sheet().SizeMultiplier()) * m.cfg.EntityScale
}

func (m *Match) reach(e *combat.Entity) float64 {
	return m.cfg.WeaponReach * sizeOf(e.Sheet().SizeMultiplier())
}

func (m *Match) weaponShape(e *combat.Entity) ruleset.HitboxDef {
	w := e.Weapon()
	k := sizeOf(w.CurrentSizeMultiplier()) * m.cfg.EntityScale
	h := w.Hitbox()
	h.Width *= k
	h.Height *= k
	h.Radius *= k
	return h
}

// bodyRadius is the radius of the circle a class hitbox collides as.
func bodyRadius(h *ruleset.HitboxDef) float64 {
	switch {
	case h == nil:
		return ruleset.DefaultCircleRadius
	case h.Type == ruleset.CircleHitbox:
		return h.Radius
	default:
		return math.Max(h.Width, h.Height) / 2
	}
}

// sizeOf keeps shapes from collapsing or inverting under heavy debuffs.
func sizeOf(mult float64) float64 {
	return math.Max(mult, 0.1)
}
