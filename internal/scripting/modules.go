package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zapcore"
)

// RegisterModules registers the engine.* Lua table into L.
//
//	engine.log(msg)  -- debug log through the manager's logger
//	engine.warn(msg) -- warn log through the manager's logger
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", L.NewFunction(m.luaLog(zapcore.DebugLevel)))
	L.SetField(engine, "warn", L.NewFunction(m.luaLog(zapcore.WarnLevel)))
	L.SetGlobal("engine", engine)
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		if ce := m.logger.Check(level, "lua: "+L.CheckString(1)); ce != nil {
			ce.Write()
		}
		return 0
	}
}
