package archive

import (
	"errors"
	"fmt"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/reflection"
	"github.com/l1jgo/engine/internal/resource"
	"go.uber.org/zap"
)

// ComponentArchive saves every component of a scene into one binary
// snapshot and loads a snapshot back into a scene.
//
// Layout, little-endian:
//
//	u32 entity count, then u32 ids (ascending)
//	u32 free id count, then u32 ids (next reused first)
//	u32 record count, then per record:
//	    string system, u32 entity id, u32 payload length, payload
//
// The payload holds the component's fields in Reflect order.
type ComponentArchive struct {
	env       Env
	chunkSize int
}

type Option func(*ComponentArchive)

func WithChunkSize(n int) Option {
	return func(a *ComponentArchive) { a.chunkSize = n }
}

func WithLogger(log *zap.Logger) Option {
	return func(a *ComponentArchive) { a.env.Log = log }
}

func New(scene *ecs.Scene, resources *resource.Manager, opts ...Option) *ComponentArchive {
	a := &ComponentArchive{
		env:       Env{Scene: scene, Resources: resources},
		chunkSize: DefaultChunkSize,
	}
	for _, o := range opts {
		o(a)
	}
	a.env.Log = a.env.logger()
	return a
}

func (a *ComponentArchive) Env() Env { return a.env }

// Save writes a snapshot of every live entity and component.
func (a *ComponentArchive) Save() ([]byte, error) {
	scene := a.env.Scene
	w := NewWriter(a.chunkSize)

	entities := scene.Entities()
	w.WriteU32(uint32(len(entities)))
	for _, e := range entities {
		w.WriteU32(e.ID())
	}
	free := scene.FreeIDs()
	w.WriteU32(uint32(len(free)))
	for _, id := range free {
		w.WriteU32(id)
	}

	records := 0
	for _, sys := range scene.Systems() {
		records += sys.Len()
	}
	w.WriteU32(uint32(records))

	for _, sys := range scene.Systems() {
		for _, e := range sys.Entities() {
			payload, err := a.SaveComponent(sys, e)
			if err != nil {
				return nil, err
			}
			w.WriteString(sys.Name())
			w.WriteU32(e.ID())
			w.WriteBlob(payload)
		}
	}

	a.env.Log.Debug("scene saved",
		zap.String("scene", scene.Name()),
		zap.Int("entities", len(entities)),
		zap.Int("components", records),
		zap.Int("bytes", w.Len()),
	)
	return w.Bytes(), nil
}

type record struct {
	system  ecs.ISystem
	entity  ecs.Entity
	payload []byte
}

// Load restores a snapshot into the scene. Entities are claimed under their
// saved ids and components attached before any field is read, so component
// references between records resolve regardless of record order. Records
// naming a system the scene lacks are skipped with a warning. A truncated
// snapshot panics with ErrArchiveTruncated.
//
// On error or panic, entities and components the load added are removed
// again.
func (a *ComponentArchive) Load(data []byte) (err error) {
	scene := a.env.Scene
	r := NewReader(data)
	tx := a.begin()
	defer tx.settle(&err)

	n := int(r.ReadU32())
	for i := 0; i < n; i++ {
		if _, err := tx.claim(r.ReadU32()); err != nil {
			return err
		}
	}
	nfree := int(r.ReadU32())
	if nfree > r.Remaining()/4 {
		panic(fmt.Errorf("%d free ids with %d bytes left: %w", nfree, r.Remaining(), ErrArchiveTruncated))
	}
	free := make([]uint32, nfree)
	for i := range free {
		free[i] = r.ReadU32()
	}

	count := int(r.ReadU32())
	records := make([]record, 0, count)
	skipped := 0
	for i := 0; i < count; i++ {
		name := r.ReadString()
		id := r.ReadU32()
		payload := r.ReadBlob()

		sys, ok := scene.System(name)
		if !ok {
			a.env.Log.Warn("skipping component of unknown system",
				zap.String("system", name),
				zap.Uint32("entity", id),
				zap.Error(ErrUnknownSystem),
			)
			skipped++
			continue
		}
		e, err := tx.claim(id)
		if err != nil {
			return err
		}
		if err := tx.attach(sys, e); err != nil {
			return fmt.Errorf("load %s on %s: %w", name, e, err)
		}
		records = append(records, record{system: sys, entity: e, payload: payload})
	}

	for _, rec := range records {
		if err := a.LoadComponent(rec.system, rec.entity, rec.payload); err != nil {
			return err
		}
	}
	scene.RestoreFreeIDs(free)

	a.env.Log.Debug("scene loaded",
		zap.String("scene", scene.Name()),
		zap.Int("entities", n),
		zap.Int("components", len(records)),
		zap.Int("skipped", skipped),
	)
	return nil
}

// loadTx remembers what a Load or Import added so a failure can undo it.
type loadTx struct {
	a        *ComponentArchive
	free     []uint32
	restored []ecs.Entity
	attached []record
}

func (a *ComponentArchive) begin() *loadTx {
	return &loadTx{a: a, free: a.env.Scene.FreeIDs()}
}

// claim returns the live entity with id, restoring it if needed.
func (tx *loadTx) claim(id uint32) (ecs.Entity, error) {
	scene := tx.a.env.Scene
	if e, ok := scene.EntityByID(id); ok {
		return e, nil
	}
	e, err := scene.RestoreEntity(id)
	if err != nil {
		return ecs.Entity{}, fmt.Errorf("restore entity %d: %w", id, err)
	}
	tx.restored = append(tx.restored, e)
	return e, nil
}

// attach adds sys's component to e unless it is already there.
func (tx *loadTx) attach(sys ecs.ISystem, e ecs.Entity) error {
	err := sys.AddTo(e)
	switch {
	case err == nil:
		tx.attached = append(tx.attached, record{system: sys, entity: e})
	case !errors.Is(err, ecs.ErrComponentExists):
		return err
	}
	return nil
}

// settle rolls back when the load failed. A panic is rolled back and
// re-raised.
func (tx *loadTx) settle(err *error) {
	p := recover()
	if p == nil && *err == nil {
		return
	}
	tx.rollback()
	if p != nil {
		panic(p)
	}
}

func (tx *loadTx) rollback() {
	scene := tx.a.env.Scene
	for _, rec := range tx.attached {
		_ = rec.system.RemoveFrom(rec.entity)
	}
	for _, e := range tx.restored {
		scene.DestroyEntity(e)
	}
	scene.RestoreFreeIDs(tx.free)
	tx.a.env.Log.Debug("scene load rolled back",
		zap.String("scene", scene.Name()),
		zap.Int("entities", len(tx.restored)),
		zap.Int("components", len(tx.attached)),
	)
}

// SaveComponent encodes e's component in sys on its own.
func (a *ComponentArchive) SaveComponent(sys ecs.ISystem, e ecs.Entity) ([]byte, error) {
	w := NewWriter(min(a.chunkSize, 256))
	ctx := NewWriteContext(w, a.env)
	if err := sys.SerializeEntity(e, ctx); err != nil {
		return nil, fmt.Errorf("save %s on %s: %w", sys.Name(), e, err)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("save %s on %s: %w", sys.Name(), e, ctx.Err())
	}
	return w.Bytes(), nil
}

// LoadComponent decodes payload into e's existing component in sys.
func (a *ComponentArchive) LoadComponent(sys ecs.ISystem, e ecs.Entity, payload []byte) error {
	ctx := NewReadContext(NewReader(payload), a.env)
	if err := sys.SerializeEntity(e, ctx); err != nil {
		return fmt.Errorf("load %s on %s: %w", sys.Name(), e, err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("load %s on %s: %w", sys.Name(), e, ctx.Err())
	}
	return nil
}

// ComponentView is one component as an editor sees it.
type ComponentView struct {
	System string
	Fields []reflection.Field
}

// Inspect lists e's components in system registration order, each with the
// fields its system shows an editor. Field pointers alias the live
// components.
func (a *ComponentArchive) Inspect(e ecs.Entity) ([]ComponentView, error) {
	if !e.IsValid() {
		return nil, fmt.Errorf("inspect %s: %w", e, ecs.ErrInvalidEntity)
	}
	var views []ComponentView
	for _, sys := range a.env.Scene.Systems() {
		if !sys.Has(e) {
			continue
		}
		in := reflection.NewInspector()
		if err := sys.InspectEntity(e, in); err != nil {
			return nil, fmt.Errorf("inspect %s on %s: %w", sys.Name(), e, err)
		}
		views = append(views, ComponentView{System: sys.Name(), Fields: in.Fields()})
	}
	return views, nil
}
