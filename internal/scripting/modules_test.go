package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/scripting"
)

func runScript(t *testing.T, mgr *scripting.Manager, luaSrc, hook string, args ...lua.LValue) lua.LValue {
	t.Helper()
	loadClass(t, mgr, "modtest", luaSrc)
	ret, err := mgr.CallHook("modtest", hook, args...)
	require.NoError(t, err)
	return ret
}

func TestEngineLog_AllLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(dice.NewCryptoSource(), zap.New(core))

	runScript(t, mgr, `
		function do_all_logs()
			engine.log.debug("d")
			engine.log.info("i")
			engine.log.warn("w")
			engine.log.error("e")
		end
	`, "do_all_logs")

	levels := map[string]bool{}
	for _, e := range logs.All() {
		levels[e.Level.String()] = true
		if e.Message == "i" {
			assert.Equal(t, "modtest", e.ContextMap()["script"])
		}
	}
	assert.True(t, levels["debug"], "expected debug log")
	assert.True(t, levels["info"], "expected info log")
	assert.True(t, levels["warn"], "expected warn log")
	assert.True(t, levels["error"], "expected error log")
}

func TestEngineDice_Chance(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function roll()
			return engine.dice.chance(1) and not engine.dice.chance(0)
		end
	`, "roll")
	assert.Equal(t, lua.LTrue, ret)
}

func TestEngineDice_Intn_InRange(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function roll()
			for i = 1, 50 do
				local v = engine.dice.intn(6)
				if v < 0 or v >= 6 then return false end
			end
			return true
		end
	`, "roll")
	assert.Equal(t, lua.LTrue, ret)
}

func TestEngineDice_Intn_RejectsNonPositive(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret := runScript(t, mgr, `function roll() return engine.dice.intn(0) end`, "roll")
	assert.Equal(t, lua.LNil, ret)
	assert.NotEmpty(t, logs.FilterLevelExact(zap.WarnLevel).All())
}

func TestEngineEntity_Get(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.GetEntity = func(id int) *scripting.EntityInfo {
		if id != 7 {
			return nil
		}
		return &scripting.EntityInfo{ID: 7, Name: "Tainter", ClassID: "tainter", HP: 40, MaxHP: 80}
	}
	ret := runScript(t, mgr, `
		function lookup()
			local e = engine.entity.get(7)
			local missing = engine.entity.get(8)
			if missing ~= nil then return "unexpected" end
			return e.name .. ":" .. e.class .. ":" .. (e.hp / e.max_hp)
		end
	`, "lookup")
	assert.Equal(t, lua.LString("Tainter:tainter:0.5"), ret)
}

func TestEngineEntity_Callbacks_NilAreNoOps(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function noop()
			local a = engine.entity.add_modifier(1, "damage_increase_flat", 1)
			local b = engine.entity.heal(1, 5)
			return a and b and engine.entity.get(1) == nil
		end
	`, "noop")
	assert.Equal(t, lua.LTrue, ret)
}
