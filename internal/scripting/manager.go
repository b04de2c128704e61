package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// globalScriptID is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no script VM is found.
const globalScriptID = "__global__"

// vm is one sandboxed LState and its per-call instruction budget.
type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	cancel func()
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
	v.L.Close()
}

// Manager owns one sandboxed LState per script ID and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook. Each LState is single-threaded;
// a per-VM mutex serializes calls into the same VM while different VMs run
// concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		logger: logger,
	}
}

// LoadScripts creates a sandboxed VM for scriptID, registers the engine.* module,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scriptID must be non-empty; scriptDir must be a readable directory.
// Postcondition: the VM replaces any previous VM for scriptID; returns error on Lua load failure.
func (m *Manager) LoadScripts(scriptID, scriptDir string, instLimit int) error {
	if scriptID == "" {
		return fmt.Errorf("scripting: script ID must not be empty")
	}
	return m.loadInto(scriptID, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared scripts accessible
// as a CallHook fallback from any script ID.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalScriptID, scriptDir, instLimit)
}

// LoadDir loads root's own *.lua files as the global VM and each immediate
// subdirectory as the VM for the script ID named after it. Planner domains
// call hooks with their domain ID, so content/scripts/ai/<domain>/ holds a
// domain's private hooks.
//
// Precondition: root must be a readable directory.
// Postcondition: on error, VMs loaded before the failure stay registered.
func (m *Manager) LoadDir(root string, instLimit int) error {
	if err := m.LoadGlobal(root, instLimit); err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := m.LoadScripts(e.Name(), filepath.Join(root, e.Name()), instLimit); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	limit := normalizeLimit(instLimit)
	L := NewSandboxedState(limit)
	m.RegisterModules(L)
	for _, path := range luaFiles {
		cancel := resetBudget(L, limit)
		err := L.DoFile(path)
		cancel()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: limit}
	m.mu.Unlock()
	if old != nil {
		old.close()
	}
	m.logger.Debug("scripting: loaded scripts",
		zap.String("script", key),
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// CallHook calls the named Lua global function in scriptID's VM. If scriptID has
// no VM, the __global__ VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scriptID, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[scriptID]
	if !ok {
		v = m.vms[globalScriptID]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM for script",
			zap.String("script", scriptID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	// Each call gets the full budget.
	if v.cancel != nil {
		v.cancel()
	}
	v.cancel = resetBudget(v.L, v.limit)

	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("script", scriptID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM. CallHook afterwards returns LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.close()
	}
}
