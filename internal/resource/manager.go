// Package resource keeps engine resources (shaders, meshes, textures) in
// typed pools and maps them to stable names. Archives persist resource
// references by name, never by slot, so a snapshot stays loadable when a
// later session loads resources in a different order.
package resource

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/l1jgo/engine/internal/core/ecs"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrDuplicateName = errors.New("resource: name already registered")
	ErrUnknownKind   = errors.New("resource: no pool for resource type")
)

// Manager owns one pool per resource type.
type Manager struct {
	pools map[reflect.Type]namedPool
	kinds []string
	log   *zap.Logger
}

type namedPool interface {
	Kind() string
	Len() int
	Names() []string
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		pools: make(map[reflect.Type]namedPool, 8),
		log:   log,
	}
}

// Kinds returns the registered pool kinds in registration order.
func (m *Manager) Kinds() []string { return append([]string(nil), m.kinds...) }

// Count returns the number of resources across all pools.
func (m *Manager) Count() int {
	n := 0
	for _, p := range m.pools {
		n += p.Len()
	}
	return n
}

// Register creates the pool for R. Registering the same type twice returns
// the existing pool.
func Register[R any](m *Manager, kind string, capacity int) *Pool[R] {
	t := reflect.TypeFor[R]()
	if p, ok := m.pools[t]; ok {
		return p.(*Pool[R])
	}
	p := &Pool[R]{
		kind:   kind,
		alloc:  ecs.NewResourceAllocator[R](capacity),
		byName: make(map[string]int, capacity),
		names:  make(map[int]string, capacity),
		log:    m.log.With(zap.String("kind", kind)),
	}
	m.pools[t] = p
	m.kinds = append(m.kinds, kind)
	return p
}

// PoolOf returns the pool registered for R.
func PoolOf[R any](m *Manager) (*Pool[R], error) {
	if m == nil {
		return nil, ErrUnknownKind
	}
	p, ok := m.pools[reflect.TypeFor[R]()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", reflect.TypeFor[R](), ErrUnknownKind)
	}
	return p.(*Pool[R]), nil
}

// Lookup resolves a stable name in R's pool.
func Lookup[R any](m *Manager, name string) (Handle[R], bool) {
	p, err := PoolOf[R](m)
	if err != nil {
		return Handle[R]{}, false
	}
	return p.Lookup(name)
}

// Pool stores resources of one type in a ResourceAllocator and keeps the
// name table in both directions.
type Pool[R any] struct {
	kind   string
	alloc  *ecs.ResourceAllocator[R]
	byName map[string]int
	names  map[int]string
	log    *zap.Logger
}

func (p *Pool[R]) Kind() string { return p.kind }
func (p *Pool[R]) Len() int     { return p.alloc.Len() }

// Names returns the registered names sorted.
func (p *Pool[R]) Names() []string {
	out := make([]string, 0, len(p.byName))
	for n := range p.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Add stores r under name. Names are NFC-normalized so that visually equal
// names typed on different systems resolve to the same resource.
func (p *Pool[R]) Add(name string, r R) (Handle[R], error) {
	name = Normalize(name)
	if name == "" {
		return Handle[R]{}, fmt.Errorf("add %s: empty name", p.kind)
	}
	if _, ok := p.byName[name]; ok {
		return Handle[R]{}, fmt.Errorf("add %s %q: %w", p.kind, name, ErrDuplicateName)
	}
	if p.alloc.Full() {
		p.alloc.Resize(max(2*p.alloc.Cap(), 8))
	}
	idx := p.alloc.Allocate()
	*p.alloc.Get(idx) = r
	p.byName[name] = idx
	p.names[idx] = name
	p.log.Debug("resource added", zap.String("name", name), zap.Int("slot", idx))
	return Handle[R]{h: p.alloc.Handle(idx)}, nil
}

// Remove frees the named resource. Handles to it become stale.
func (p *Pool[R]) Remove(name string) bool {
	name = Normalize(name)
	idx, ok := p.byName[name]
	if !ok {
		return false
	}
	p.alloc.Deallocate(idx)
	delete(p.byName, name)
	delete(p.names, idx)
	return true
}

func (p *Pool[R]) Lookup(name string) (Handle[R], bool) {
	idx, ok := p.byName[Normalize(name)]
	if !ok {
		return Handle[R]{}, false
	}
	return Handle[R]{h: p.alloc.Handle(idx)}, true
}

// NameOf returns the stable name of a live handle from this pool.
func (p *Pool[R]) NameOf(h Handle[R]) (string, bool) {
	if h.h.Allocator() != p.alloc || !h.h.Valid() {
		return "", false
	}
	name, ok := p.names[h.h.Index()]
	return name, ok
}

// Normalize returns the canonical form of a stable name.
func Normalize(name string) string {
	return norm.NFC.String(name)
}
