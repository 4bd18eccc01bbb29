package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// globalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no class VM is found.
const globalScope = "__global__"

// Hook names called by the match controller.
const (
	HookOnHit   = "on_hit"
	HookOnDeath = "on_death"
)

// EntityInfo is a snapshot of an arena entity passed to Lua callbacks.
type EntityInfo struct {
	ID      int
	Name    string
	ClassID string
	HP      float64
	MaxHP   float64
}

type vm struct {
	sb *Sandbox
	mu sync.Mutex
}

// Manager owns one sandboxed LState per class and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook after all loads complete. Each
// VM is single-threaded; a per-VM lock serialises calls into it.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	src    dice.Source
	logger *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	GetEntity   func(id int) *EntityInfo
	AddModifier func(id int, key string, value float64) error
	Heal        func(id int, amount float64) error
}

// NewManager creates a Manager.
//
// Precondition: src and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	if src == nil {
		panic("scripting: NewManager requires a non-nil dice.Source")
	}
	if logger == nil {
		panic("scripting: NewManager requires a non-nil logger")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		src:    src,
		logger: logger,
	}
}

// LoadClass creates a sandboxed VM for classID and executes the script at path.
// Loading a class again replaces its VM.
//
// Precondition: classID must be non-empty; path must be a readable Lua file.
// Postcondition: class VM is registered; returns error on Lua load failure.
func (m *Manager) LoadClass(classID, path string, instLimit int) error {
	return m.loadInto(classID, []string{path}, instLimit)
}

// LoadGlobal creates the shared VM from every *.lua file in scriptDir, in
// lexicographic order. It serves hooks for classes without their own script.
//
// Precondition: scriptDir must be a readable directory.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)
	return m.loadInto(globalScope, luaFiles, instLimit)
}

func (m *Manager) loadInto(key string, files []string, instLimit int) error {
	sb := NewSandbox(instLimit)
	m.RegisterModules(sb.L, key)

	for _, path := range files {
		if err := sb.DoFile(path); err != nil {
			sb.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.vms[key]; ok {
		old.sb.Close()
	}
	m.vms[key] = &vm{sb: sb}
	m.mu.Unlock()
	return nil
}

// Has reports whether a VM is loaded for classID.
func (m *Manager) Has(classID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[classID]
	return ok
}

// CallHook calls the named Lua global function in classID's VM. If the class
// has no VM, the global VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(classID, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.call(classID, hook, func(*lua.LState) []lua.LValue { return args })
}

// OnHit calls on_hit(attacker, victim, damage) in the attacker's class VM.
func (m *Manager) OnHit(attacker, victim EntityInfo, damage float64) {
	m.call(attacker.ClassID, HookOnHit, func(L *lua.LState) []lua.LValue { //nolint:errcheck
		return []lua.LValue{entityTable(L, attacker), entityTable(L, victim), lua.LNumber(damage)}
	})
}

// OnDeath calls on_death(entity) in the dead entity's class VM.
func (m *Manager) OnDeath(dead EntityInfo) {
	m.call(dead.ClassID, HookOnDeath, func(L *lua.LState) []lua.LValue { //nolint:errcheck
		return []lua.LValue{entityTable(L, dead)}
	})
}

func (m *Manager) call(classID, hook string, args func(*lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[classID]
	if !ok {
		v = m.vms[globalScope]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Debug("scripting: no VM for class",
			zap.String("class", classID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.sb.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	var ret lua.LValue = lua.LNil
	err := v.sb.Run(func(L *lua.LState) error {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args(L)...); err != nil {
			return err
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("class", classID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.sb.Close()
		delete(m.vms, key)
	}
}

func entityTable(L *lua.LState, e EntityInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LNumber(e.ID))
	t.RawSetString("name", lua.LString(e.Name))
	t.RawSetString("class", lua.LString(e.ClassID))
	t.RawSetString("hp", lua.LNumber(e.HP))
	t.RawSetString("max_hp", lua.LNumber(e.MaxHP))
	return t
}
