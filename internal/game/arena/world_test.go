package arena_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

var stick = ruleset.HitboxDef{Type: ruleset.BoxHitbox, Width: 60, Height: 10}

func TestVec_Basics(t *testing.T) {
	v := arena.Vec{X: 3, Y: 4}
	assert.Equal(t, 5.0, v.Len())
	assert.InDelta(t, 1.0, v.Normalize().Len(), 1e-12)
	assert.Equal(t, arena.Vec{}, arena.Vec{}.Normalize())
	r := arena.Vec{X: 1}.Rotate(math.Pi / 2)
	assert.InDelta(t, 0.0, r.X, 1e-12)
	assert.InDelta(t, 1.0, r.Y, 1e-12)
}

func TestWorld_AddBody_Duplicate(t *testing.T) {
	w := arena.NewWorld(800, 800)
	_, err := w.AddBody(1, arena.Vec{X: 100, Y: 100}, 10)
	require.NoError(t, err)
	_, err = w.AddBody(1, arena.Vec{X: 100, Y: 100}, 10)
	assert.Error(t, err)
}

func TestWorld_AddBody_ClampedInside(t *testing.T) {
	w := arena.NewWorld(800, 600)
	b, err := w.AddBody(1, arena.Vec{X: -50, Y: 900}, 20)
	require.NoError(t, err)
	assert.Equal(t, arena.Vec{X: 20, Y: 580}, b.Pos)
}

func TestWorld_WallBounce_ReflectsVelocity(t *testing.T) {
	w := arena.NewWorld(100, 100)
	b, err := w.AddBody(1, arena.Vec{X: 85, Y: 50}, 10)
	require.NoError(t, err)
	b.Vel = arena.Vec{X: 100, Y: 0}

	w.Step(0.1)
	assert.Equal(t, -100.0, b.Vel.X)
	assert.Equal(t, 90.0, b.Pos.X)
}

func TestWorld_BodyCollision_ExchangesVelocity(t *testing.T) {
	w := arena.NewWorld(1000, 1000)
	a, err := w.AddBody(1, arena.Vec{X: 400, Y: 500}, 30)
	require.NoError(t, err)
	b, err := w.AddBody(2, arena.Vec{X: 470, Y: 500}, 30)
	require.NoError(t, err)
	a.Vel = arena.Vec{X: 100}
	b.Vel = arena.Vec{X: -100}

	w.Step(0.1)
	assert.InDelta(t, -100.0, a.Vel.X, 1e-9)
	assert.InDelta(t, 100.0, b.Vel.X, 1e-9)
	assert.GreaterOrEqual(t, b.Pos.Sub(a.Pos).Len(), 60.0-1e-9)
}

func TestWorld_SetSpeed_KeepsHeading(t *testing.T) {
	w := arena.NewWorld(1000, 1000)
	b, err := w.AddBody(1, arena.Vec{X: 500, Y: 500}, 10)
	require.NoError(t, err)

	require.NoError(t, w.SetSpeed(1, 50, math.Pi/2))
	assert.InDelta(t, 0.0, b.Vel.X, 1e-9)
	assert.InDelta(t, 50.0, b.Vel.Y, 1e-9)

	require.NoError(t, w.SetSpeed(1, 200, 0))
	assert.InDelta(t, 200.0, b.Vel.Y, 1e-9, "heading ignored once moving")

	assert.ErrorIs(t, w.SetSpeed(9, 1, 0), arena.ErrUnknownBody)
}

func TestOverlaps_Box(t *testing.T) {
	body := &arena.Body{Pos: arena.Vec{X: 40, Y: 0}, Radius: 15}
	assert.True(t, arena.Overlaps(stick, arena.Vec{}, 0, body), "along the blade")
	assert.False(t, arena.Overlaps(stick, arena.Vec{}, math.Pi/2, body), "blade rotated away")

	body.Pos = arena.Vec{X: 0, Y: 40}
	assert.True(t, arena.Overlaps(stick, arena.Vec{}, math.Pi/2, body))
}

func TestOverlaps_Circle(t *testing.T) {
	orb := ruleset.HitboxDef{Type: ruleset.CircleHitbox, Radius: 10}
	body := &arena.Body{Pos: arena.Vec{X: 25}, Radius: 15}
	assert.True(t, arena.Overlaps(orb, arena.Vec{}, 0, body))
	body.Pos.X = 26
	assert.False(t, arena.Overlaps(orb, arena.Vec{}, 0, body))
}

func TestWorld_Step_ReportsContactDiff(t *testing.T) {
	w := arena.NewWorld(1000, 1000)
	_, err := w.AddBody(1, arena.Vec{X: 500, Y: 500}, 20)
	require.NoError(t, err)
	_, err = w.AddBody(2, arena.Vec{X: 600, Y: 500}, 20)
	require.NoError(t, err)
	require.NoError(t, w.SetSensor(1, stick, 60))

	w.SetSensorAngle(1, math.Pi)
	assert.Empty(t, w.Step(0))

	w.SetSensorAngle(1, 0)
	contacts := w.Step(0)
	require.Len(t, contacts, 1)
	assert.Equal(t, arena.Contact{Kind: arena.ContactBegan, OwnerID: 1, OtherID: 2}, contacts[0])

	assert.Empty(t, w.Step(0), "persistent overlap is not reported again")

	w.SetSensorAngle(1, math.Pi)
	contacts = w.Step(0)
	require.Len(t, contacts, 1)
	assert.Equal(t, arena.ContactEnded, contacts[0].Kind)
}

func TestWorld_Step_SensorNeverTouchesOwner(t *testing.T) {
	w := arena.NewWorld(1000, 1000)
	_, err := w.AddBody(1, arena.Vec{X: 500, Y: 500}, 50)
	require.NoError(t, err)
	require.NoError(t, w.SetSensor(1, stick, 10))
	assert.Empty(t, w.Step(0))
}

func TestWorld_RemoveBody_DropsContacts(t *testing.T) {
	w := arena.NewWorld(1000, 1000)
	_, err := w.AddBody(1, arena.Vec{X: 500, Y: 500}, 20)
	require.NoError(t, err)
	_, err = w.AddBody(2, arena.Vec{X: 560, Y: 500}, 20)
	require.NoError(t, err)
	require.NoError(t, w.SetSensor(1, stick, 40))
	require.Len(t, w.Step(0), 1)

	w.RemoveBody(2)
	assert.Empty(t, w.Step(0))
	_, ok := w.Body(2)
	assert.False(t, ok)
}

func TestPropertyWorld_BodiesStayInside(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := arena.NewWorld(800, 600)
		n := rapid.IntRange(1, 4).Draw(rt, "bodies")
		for i := 1; i <= n; i++ {
			b, err := w.AddBody(i, arena.Vec{
				X: rapid.Float64Range(0, 800).Draw(rt, "x"),
				Y: rapid.Float64Range(0, 600).Draw(rt, "y"),
			}, 20)
			require.NoError(rt, err)
			b.Vel = arena.Vec{
				X: rapid.Float64Range(-500, 500).Draw(rt, "vx"),
				Y: rapid.Float64Range(-500, 500).Draw(rt, "vy"),
			}
		}
		for step := 0; step < 100; step++ {
			w.Step(1.0 / 60)
			for i := 1; i <= n; i++ {
				b, _ := w.Body(i)
				require.GreaterOrEqual(rt, b.Pos.X, 20.0-1e-9)
				require.LessOrEqual(rt, b.Pos.X, 780.0+1e-9)
				require.GreaterOrEqual(rt, b.Pos.Y, 20.0-1e-9)
				require.LessOrEqual(rt, b.Pos.Y, 580.0+1e-9)
			}
		}
	})
}

func TestPropertyWorld_ContactsAlternate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := arena.NewWorld(1000, 1000)
		_, err := w.AddBody(1, arena.Vec{X: 500, Y: 500}, 20)
		require.NoError(rt, err)
		_, err = w.AddBody(2, arena.Vec{X: 580, Y: 500}, 20)
		require.NoError(rt, err)
		require.NoError(rt, w.SetSensor(1, stick, 50))

		angles := rapid.SliceOfN(rapid.Float64Range(0, 2*math.Pi), 1, 50).Draw(rt, "angles")
		touching := false
		for _, a := range angles {
			w.SetSensorAngle(1, a)
			for _, c := range w.Step(0) {
				if c.Kind == arena.ContactBegan {
					require.False(rt, touching)
					touching = true
				} else {
					require.True(rt, touching)
					touching = false
				}
			}
		}
	})
}
