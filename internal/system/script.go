package system

import (
	"time"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/scripting"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ScriptSystem drives Lua behaviours. A script's behaviour is loaded on the
// first tick after it is attached (so archives can fill Path first), which
// is also when on_begin runs. Scripts do not run in editor mode.
type ScriptSystem struct {
	*ecs.System[component.Script]
	lua        *scripting.Engine
	transforms *TransformSystem
}

func NewScriptSystem(engine *scripting.Engine, transforms *TransformSystem, opts ...ecs.SystemOption) *ScriptSystem {
	s := &ScriptSystem{
		System:     ecs.NewSystem[component.Script]("Script", append(opts, ecs.SkipInEditor())...),
		lua:        engine,
		transforms: transforms,
	}
	engine.Register("get_position", s.luaGetPosition)
	engine.Register("set_position", s.luaSetPosition)
	return s
}

func (s *ScriptSystem) OnBegin(h ecs.Handle[component.Script]) {
	h.MustGet().Enabled = true
}

func (s *ScriptSystem) OnTick(dt time.Duration) {
	for _, sc := range s.All() {
		if !sc.Enabled {
			continue
		}
		id := lua.LNumber(sc.Entity().ID())
		if !sc.Loaded() {
			if err := s.start(sc, id); err != nil {
				s.fail(sc, err)
				continue
			}
		}
		b, err := s.lua.Behaviour(sc.Path)
		if err != nil {
			s.fail(sc, err)
			continue
		}
		if _, err := s.lua.CallHook(b, "on_tick", id, lua.LNumber(dt.Seconds())); err != nil {
			s.fail(sc, err)
			continue
		}
		sc.Ticks++
	}
}

func (s *ScriptSystem) OnEnd(h ecs.Handle[component.Script]) {
	sc := h.MustGet()
	if !sc.Loaded() {
		return
	}
	b, err := s.lua.Behaviour(sc.Path)
	if err != nil {
		return
	}
	if _, err := s.lua.CallHook(b, "on_end", lua.LNumber(sc.Entity().ID())); err != nil {
		s.Logger().Warn("script on_end failed", zap.String("path", sc.Path), zap.Error(err))
	}
}

func (s *ScriptSystem) start(sc *component.Script, id lua.LNumber) error {
	if sc.Path == "" {
		return ErrNoBehaviour
	}
	b, err := s.lua.Behaviour(sc.Path)
	if err != nil {
		return err
	}
	sc.SetLoaded(true)
	if _, err := s.lua.CallHook(b, "on_begin", id, s.lua.StringList(sc.Args)); err != nil {
		return err
	}
	return nil
}

// fail disables a script after an error so it does not log every frame.
func (s *ScriptSystem) fail(sc *component.Script, err error) {
	sc.Enabled = false
	s.Logger().Warn("script disabled",
		zap.Stringer("entity", sc.Entity()),
		zap.String("path", sc.Path),
		zap.Error(err),
	)
}

func (s *ScriptSystem) transform(L *lua.LState) *component.Transform {
	id := uint32(L.CheckNumber(1))
	e, ok := s.Scene().EntityByID(id)
	if !ok {
		L.RaiseError("entity %d is not alive", id)
		return nil
	}
	h, err := s.transforms.Get(e)
	if err != nil {
		L.RaiseError("%v", err)
		return nil
	}
	return h.MustGet()
}

func (s *ScriptSystem) luaGetPosition(L *lua.LState) int {
	t := s.transform(L)
	L.Push(lua.LNumber(t.Position[0]))
	L.Push(lua.LNumber(t.Position[1]))
	L.Push(lua.LNumber(t.Position[2]))
	return 3
}

func (s *ScriptSystem) luaSetPosition(L *lua.LState) int {
	t := s.transform(L)
	t.Position = component.Vec3{
		float32(L.CheckNumber(2)),
		float32(L.CheckNumber(3)),
		float32(L.CheckNumber(4)),
	}
	return 0
}
