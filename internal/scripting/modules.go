package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// RegisterModules registers all engine.* Lua tables into L. scope names the
// class (or the global VM) in log output.
//
// Precondition: L must be from a Sandbox.
// Postcondition: engine global is defined in L with log, dice and entity tables.
func (m *Manager) RegisterModules(L *lua.LState, scope string) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L, scope))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "entity", m.entityModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState, scope string) *lua.LTable {
	logger := m.logger.With(zap.String("script", scope))
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
		"error": logger.Error,
	}
	for name, fn := range levels {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// engine.dice.chance(p) -> bool
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(dice.Chance(m.src, float64(L.CheckNumber(1)))))
		return 1
	}))
	// engine.dice.intn(n) -> int in [0, n)
	L.SetField(mod, "intn", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "n must be > 0")
			return 0
		}
		L.Push(lua.LNumber(m.src.Intn(n)))
		return 1
	}))
	return mod
}

func (m *Manager) entityModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// engine.entity.get(id) -> table | nil
	L.SetField(mod, "get", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(1)
		if m.GetEntity == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetEntity(id)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(entityTable(L, *info))
		return 1
	}))
	// engine.entity.add_modifier(id, key, value) -> ok, err
	L.SetField(mod, "add_modifier", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(1)
		key := L.CheckString(2)
		value := float64(L.CheckNumber(3))
		if m.AddModifier == nil {
			return pushResult(L, nil)
		}
		return pushResult(L, m.AddModifier(id, key, value))
	}))
	// engine.entity.heal(id, amount) -> ok, err
	L.SetField(mod, "heal", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(1)
		amount := float64(L.CheckNumber(2))
		if m.Heal == nil {
			return pushResult(L, nil)
		}
		return pushResult(L, m.Heal(id, amount))
	}))
	return mod
}

func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}
