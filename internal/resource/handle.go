package resource

import (
	"github.com/l1jgo/engine/internal/core/ecs"
)

// Ref is implemented by *Handle[R]. Archives use it to persist a resource
// reference as its stable name.
type Ref interface {
	StableName(m *Manager) string
	BindName(m *Manager, name string) bool
}

// Handle references a resource in a Pool. The zero Handle is null.
type Handle[R any] struct {
	h ecs.Handle[R]
}

func (h Handle[R]) IsNull() bool       { return h.h.IsNull() }
func (h Handle[R]) Valid() bool        { return h.h.Valid() }
func (h Handle[R]) Get() (*R, error)   { return h.h.Get() }
func (h Handle[R]) MustGet() *R        { return h.h.MustGet() }
func (h Handle[R]) Raw() ecs.Handle[R] { return h.h }
func (h Handle[R]) String() string     { return h.h.String() }

// StableName returns the name the handle's resource is registered under, or
// "" for a null or dead handle.
func (h *Handle[R]) StableName(m *Manager) string {
	if h.h.IsNull() {
		return ""
	}
	p, err := PoolOf[R](m)
	if err != nil {
		return ""
	}
	name, _ := p.NameOf(*h)
	return name
}

// BindName points h at the resource registered under name. An empty or
// unknown name leaves h null and reports false.
func (h *Handle[R]) BindName(m *Manager, name string) bool {
	*h = Handle[R]{}
	if name == "" {
		return false
	}
	found, ok := Lookup[R](m, name)
	if !ok {
		return false
	}
	*h = found
	return true
}
