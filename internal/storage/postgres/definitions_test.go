package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
	"github.com/cory-johannsen/arena/internal/testutil"
)

func ptr(v float64) *float64 { return &v }

func sampleRegistry(t *testing.T) *ruleset.Registry {
	t.Helper()
	reg := ruleset.NewRegistry()
	master := &ruleset.ClassDef{
		ID:         "master",
		Name:       "Master",
		BaseStats:  ruleset.CharacterStats{HP: ptr(120), DamageIncreaseFlat: 2},
		OnHitGiven: map[string]float64{"atk_speed_increase_multiplier": 0.05},
		ActiveSkill: &ruleset.ActiveSkillDef{
			ID: "focus", Cooldown: 5, Duration: 2,
			Effects: ruleset.SkillEffects{AtkSpeedMultiplier: 0.5},
		},
	}
	master.Normalize(zap.NewNop())
	require.NoError(t, reg.RegisterClass(master))

	stick := &ruleset.WeaponDef{ID: "stick", BaseStats: ruleset.WeaponStats{Damage: ptr(10)}}
	stick.Normalize(zap.NewNop())
	require.NoError(t, reg.RegisterWeapon(stick))
	return reg
}

func TestDefinitionRepository_ImportAndServe(t *testing.T) {
	pool := testutil.NewMigratedPool(t)
	repo := postgres.NewDefinitionRepository(pool, zaptest.NewLogger(t))
	ctx := context.Background()

	classes, weapons, err := repo.Import(ctx, sampleRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, 1, classes)
	assert.Equal(t, 1, weapons)

	ids, err := repo.ClassIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"master"}, ids)

	master, err := repo.Class(ctx, "master")
	require.NoError(t, err)
	assert.Equal(t, "Master", master.Name)
	assert.Equal(t, 120.0, *master.BaseStats.HP)
	assert.Equal(t, 2.0, master.BaseStats.DamageIncreaseFlat)
	assert.Equal(t, 0.05, master.OnHitGiven["atk_speed_increase_multiplier"])
	require.NotNil(t, master.ActiveSkill)
	assert.Equal(t, 0.5, master.ActiveSkill.Effects.AtkSpeedMultiplier)
	assert.Equal(t, ruleset.CircleHitbox, master.Hitbox.Type)

	stick, err := repo.Weapon(ctx, "stick")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *stick.BaseStats.Damage)
	assert.Equal(t, ruleset.BoxHitbox, stick.Hitbox.Type)
}

func TestDefinitionRepository_NotFound(t *testing.T) {
	pool := testutil.NewMigratedPool(t)
	repo := postgres.NewDefinitionRepository(pool, zap.NewNop())
	_, err := repo.Class(context.Background(), "nobody")
	assert.ErrorIs(t, err, ruleset.ErrNotFound)
	_, err = repo.Weapon(context.Background(), "nothing")
	assert.ErrorIs(t, err, ruleset.ErrNotFound)
}

func TestDefinitionRepository_UpsertReplaces(t *testing.T) {
	pool := testutil.NewMigratedPool(t)
	repo := postgres.NewDefinitionRepository(pool, zap.NewNop())
	ctx := context.Background()

	def := &ruleset.WeaponDef{ID: "orb", BaseStats: ruleset.WeaponStats{Damage: ptr(4)}}
	def.Normalize(zap.NewNop())
	require.NoError(t, repo.UpsertWeapon(ctx, def))
	def.BaseStats.Damage = ptr(9)
	require.NoError(t, repo.UpsertWeapon(ctx, def))

	got, err := repo.Weapon(ctx, "orb")
	require.NoError(t, err)
	assert.Equal(t, 9.0, *got.BaseStats.Damage)
	ids, err := repo.WeaponIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"orb"}, ids)
}

func TestDefinitionRepository_UnknownFieldsTolerated(t *testing.T) {
	pool := testutil.NewMigratedPool(t)
	repo := postgres.NewDefinitionRepository(pool, zap.NewNop())
	ctx := context.Background()
	_, err := pool.Exec(ctx, `INSERT INTO class_definitions (id, body) VALUES ('old', '{"id":"old","legacy":true}')`)
	require.NoError(t, err)

	def, err := repo.Class(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, ruleset.DefaultHP, *def.BaseStats.HP)
}

func TestMigrate_UpDownUp(t *testing.T) {
	cfg := testutil.NewDatabase(t)

	state, err := postgres.Migrate(cfg.DSN(), testutil.MigrationsDir(), postgres.Up, 0)
	require.NoError(t, err)
	assert.True(t, state.Changed)
	assert.Equal(t, uint(2), state.Version)

	state, err = postgres.Migrate(cfg.DSN(), testutil.MigrationsDir(), postgres.Up, 0)
	require.NoError(t, err)
	assert.False(t, state.Changed, "second run is a no-op")

	state, err = postgres.Migrate(cfg.DSN(), testutil.MigrationsDir(), postgres.Down, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), state.Version)

	state, err = postgres.Migrate(cfg.DSN(), testutil.MigrationsDir(), postgres.Up, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(2), state.Version)
}

func TestPool_HealthAndWatch(t *testing.T) {
	cfg := testutil.NewDatabase(t)
	ctx, cancel := context.WithCancel(context.Background())
	pool, err := postgres.NewPool(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, pool.Health(ctx, 0))

	done := make(chan error, 1)
	go func() { done <- pool.Watch(ctx, 10*time.Millisecond) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
