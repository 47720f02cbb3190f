package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

var (
	ErrNotBehaviour = errors.New("scripting: script did not return a table")
	ErrNoFunction   = errors.New("scripting: lua function not found")
	ErrScriptPath   = errors.New("scripting: script path escapes the scripts dir")
)

// Engine wraps a single gopher-lua VM.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm         *lua.LState
	dir        string
	behaviours map[string]*lua.LTable
	log        *zap.Logger
}

// NewEngine creates a Lua engine rooted at scriptsDir and loads every shared
// library under scriptsDir/lib. A missing directory is not an error.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:         vm,
		dir:        scriptsDir,
		behaviours: make(map[string]*lua.LTable),
		log:        log,
	}
	e.Register("log", e.luaLog)

	if scriptsDir != "" {
		if err := e.loadDir(filepath.Join(scriptsDir, "lib")); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load lib scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir runs all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Register exposes a Go function to scripts as a global.
func (e *Engine) Register(name string, fn lua.LGFunction) {
	e.vm.SetGlobal(name, e.vm.NewFunction(fn))
}

// LoadBehaviour compiles src under name. The chunk must return a table of
// hook functions. A later load under the same name replaces the first.
func (e *Engine) LoadBehaviour(name, src string) error {
	fn, err := e.vm.LoadString(src)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	return e.install(name, fn)
}

// Behaviour returns the hook table for path, loading path from the scripts
// directory the first time it is asked for.
func (e *Engine) Behaviour(path string) (*lua.LTable, error) {
	if t, ok := e.behaviours[path]; ok {
		return t, nil
	}
	if !filepath.IsLocal(path) {
		return nil, fmt.Errorf("load %q: %w", path, ErrScriptPath)
	}
	fn, err := e.vm.LoadFile(filepath.Join(e.dir, path))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	if err := e.install(path, fn); err != nil {
		return nil, err
	}
	return e.behaviours[path], nil
}

func (e *Engine) install(name string, fn *lua.LFunction) error {
	e.vm.Push(fn)
	if err := e.vm.PCall(0, 1, nil); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	t, ok := ret.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%s returned %s: %w", name, ret.Type(), ErrNotBehaviour)
	}
	e.behaviours[name] = t
	e.log.Debug("loaded lua behaviour", zap.String("name", name))
	return nil
}

// Behaviours lists loaded behaviour names.
func (e *Engine) Behaviours() []string {
	out := make([]string, 0, len(e.behaviours))
	for name := range e.behaviours {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CallHook calls behaviour[hook](args...). It reports false when the
// behaviour does not define the hook.
func (e *Engine) CallHook(behaviour *lua.LTable, hook string, args ...lua.LValue) (bool, error) {
	fn, ok := behaviour.RawGetString(hook).(*lua.LFunction)
	if !ok {
		return false, nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		return true, fmt.Errorf("lua %s: %w", hook, err)
	}
	return true, nil
}

// CallNumber calls a global Lua function with numeric args and returns its
// numeric result.
func (e *Engine) CallNumber(name string, args ...float64) (float64, error) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return 0, fmt.Errorf("%s: %w", name, ErrNoFunction)
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		return 0, fmt.Errorf("lua %s: %w", name, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return float64(lua.LVAsNumber(result)), nil
}

// StringList converts a Go string slice to a Lua array table.
func (e *Engine) StringList(items []string) *lua.LTable {
	t := e.vm.CreateTable(len(items), 0)
	for _, s := range items {
		t.Append(lua.LString(s))
	}
	return t
}

// Global returns the value of a Lua global.
func (e *Engine) Global(name string) lua.LValue {
	return e.vm.GetGlobal(name)
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
