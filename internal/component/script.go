package component

import (
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/reflection"
)

// Script attaches a Lua behaviour to an entity. Path names a file under the
// scripting directory; the file returns a table whose on_begin, on_tick and
// on_end functions are called with the owning entity id.
type Script struct {
	ecs.Component
	Path    string
	Args    []string
	Enabled bool

	// Ticks counts on_tick calls since the script was attached.
	Ticks  uint64
	loaded bool
}

func (s *Script) Reflect(ctx reflection.Context) {
	ctx.Field("path", &s.Path)
	ctx.Field("args", &s.Args)
	ctx.Field("enabled", &s.Enabled)
}

func (s *Script) Loaded() bool      { return s.loaded }
func (s *Script) SetLoaded(ok bool) { s.loaded = ok }
