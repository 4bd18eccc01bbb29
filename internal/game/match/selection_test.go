package match_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

func catalogue(t testing.TB) *ruleset.Registry {
	t.Helper()
	reg := ruleset.NewRegistry()
	for _, id := range []string{"berserker", "master", "tainter"} {
		require.NoError(t, reg.RegisterClass(classDef(id, 100)))
	}
	for _, id := range []string{"golden_stick", "magic_orb", "stick"} {
		require.NoError(t, reg.RegisterWeapon(weaponDef(id, 5)))
	}
	return reg
}

func TestResolve_ExplicitSelection(t *testing.T) {
	sel := match.Selection{
		P1: match.Loadout{ClassID: "master", WeaponID: "stick"},
		P2: match.Loadout{ClassID: "tainter", WeaponID: "magic_orb"},
	}
	fighters, err := match.Resolve(context.Background(), catalogue(t), sel, dice.NewSeededSource(1))
	require.NoError(t, err)
	assert.Equal(t, "master", fighters[0].Class.ID)
	assert.Equal(t, "stick", fighters[0].Weapon.ID)
	assert.Equal(t, "tainter", fighters[1].Class.ID)
	assert.Equal(t, "magic_orb", fighters[1].Weapon.ID)
}

func TestResolve_P1Incomplete(t *testing.T) {
	for _, p1 := range []match.Loadout{{}, {ClassID: "master"}, {WeaponID: "stick"}} {
		_, err := match.Resolve(context.Background(), catalogue(t), match.Selection{P1: p1}, dice.NewSeededSource(1))
		assert.ErrorIs(t, err, match.ErrIncompleteSelection)
	}
}

func TestResolve_UnknownDefinition(t *testing.T) {
	sel := match.Selection{
		P1: match.Loadout{ClassID: "necromancer", WeaponID: "stick"},
		P2: match.Loadout{ClassID: "master", WeaponID: "stick"},
	}
	_, err := match.Resolve(context.Background(), catalogue(t), sel, dice.NewSeededSource(1))
	assert.ErrorIs(t, err, ruleset.ErrNotFound)
}

func TestResolve_EmptyCatalogue(t *testing.T) {
	reg := ruleset.NewRegistry()
	require.NoError(t, reg.RegisterWeapon(weaponDef("stick", 1)))
	sel := match.Selection{P1: match.Loadout{ClassID: "master", WeaponID: "stick"}}
	_, err := match.Resolve(context.Background(), reg, sel, dice.NewSeededSource(1))
	assert.ErrorIs(t, err, ruleset.ErrNotFound)
}

func TestResolve_PartialP2KeepsChosenField(t *testing.T) {
	sel := match.Selection{
		P1: match.Loadout{ClassID: "master", WeaponID: "stick"},
		P2: match.Loadout{ClassID: "berserker"},
	}
	fighters, err := match.Resolve(context.Background(), catalogue(t), sel, dice.NewSeededSource(4))
	require.NoError(t, err)
	assert.Equal(t, "berserker", fighters[1].ClassID)
	assert.NotEmpty(t, fighters[1].WeaponID)
}

func TestPropertyResolve_RandomP2FromCatalogue(t *testing.T) {
	reg := catalogue(t)
	classes, _ := reg.ClassIDs(context.Background())
	weapons, _ := reg.WeaponIDs(context.Background())
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		sel := match.Selection{P1: match.Loadout{ClassID: "master", WeaponID: "stick"}}
		fighters, err := match.Resolve(context.Background(), reg, sel, dice.NewSeededSource(seed))
		if err != nil {
			rt.Fatalf("Resolve: %v", err)
		}
		p2 := fighters[1]
		assert.Contains(rt, classes, p2.ClassID)
		assert.Contains(rt, weapons, p2.WeaponID)
		assert.Equal(rt, p2.ClassID, p2.Class.ID)
		assert.Equal(rt, p2.WeaponID, p2.Weapon.ID)
	})
}
