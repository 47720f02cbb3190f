package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"
)

func TestEngine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "math.lua"),
		[]byte("function double(x) return x * 2 end\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spin.lua"),
		[]byte("return { on_tick = function(id, dt) spun = (spun or 0) + id end }\n"), 0o644))

	e, err := NewEngine(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	t.Run("lib functions are global", func(t *testing.T) {
		v, err := e.CallNumber("double", 21)
		require.NoError(t, err)
		require.Equal(t, 42.0, v)

		_, err = e.CallNumber("missing")
		require.ErrorIs(t, err, ErrNoFunction)
	})

	t.Run("behaviour from file is cached", func(t *testing.T) {
		b, err := e.Behaviour("spin.lua")
		require.NoError(t, err)
		again, err := e.Behaviour("spin.lua")
		require.NoError(t, err)
		require.Same(t, b, again)

		called, err := e.CallHook(b, "on_tick", lua.LNumber(3), lua.LNumber(0.1))
		require.NoError(t, err)
		require.True(t, called)
		require.Equal(t, lua.LNumber(3), e.Global("spun"))

		called, err = e.CallHook(b, "on_end", lua.LNumber(3))
		require.NoError(t, err)
		require.False(t, called)
	})

	t.Run("behaviour paths stay inside the scripts dir", func(t *testing.T) {
		for _, path := range []string{"../spin.lua", "lib/../../spin.lua", filepath.Join(dir, "spin.lua"), ""} {
			_, err := e.Behaviour(path)
			require.ErrorIs(t, err, ErrScriptPath, path)
		}
		_, err := e.Behaviour("lib/math.lua")
		require.ErrorIs(t, err, ErrNotBehaviour, "nested paths are allowed")
	})

	t.Run("behaviour must return a table", func(t *testing.T) {
		err := e.LoadBehaviour("bad", "return 1")
		require.ErrorIs(t, err, ErrNotBehaviour)
		require.Error(t, e.LoadBehaviour("broken", "return {"))
	})

	t.Run("go functions are callable", func(t *testing.T) {
		var got []string
		e.Register("collect", func(L *lua.LState) int {
			got = append(got, L.CheckString(1))
			return 0
		})
		require.NoError(t, e.LoadBehaviour("tags", `
return {
  on_begin = function(id, args)
    for _, a in ipairs(args) do collect(a) end
    log("begin " .. id)
  end,
}`))
		b, err := e.Behaviour("tags")
		require.NoError(t, err)
		_, err = e.CallHook(b, "on_begin", lua.LNumber(1), e.StringList([]string{"x", "y"}))
		require.NoError(t, err)
		require.Equal(t, []string{"x", "y"}, got)
		require.Equal(t, []string{"spin.lua", "tags"}, e.Behaviours())
	})

	t.Run("runtime errors surface", func(t *testing.T) {
		require.NoError(t, e.LoadBehaviour("boom", `return { on_tick = function() error("boom") end }`))
		b, _ := e.Behaviour("boom")
		_, err := e.CallHook(b, "on_tick")
		require.Error(t, err)
	})
}

func TestMissingDir(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "none"), nil)
	require.NoError(t, err)
	e.Close()
}
