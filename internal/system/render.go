package system

import (
	"context"
	"encoding/binary"
	"math"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/resource"
	"go.uber.org/zap"
)

// RenderItem is one draw the renderer will issue.
type RenderItem struct {
	Entity      uint32
	Mesh        string
	Material    string
	Albedo      string
	Layer       component.Layer
	World       component.Vec3
	Rotation    component.Quat
	Tint        [4]float32
	CastShadows bool
	LOD         int
}

// RenderSnapshot is the frame state handed to the render worker. It is built
// in pre-render and never mutated afterwards. Digest covers Items only, so two
// frames that draw the same thing share a digest.
type RenderSnapshot struct {
	Frame  uint64
	Items  []RenderItem
	Digest uint64
}

func digestItems(items []RenderItem) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 96)
	for _, it := range items {
		buf = binary.LittleEndian.AppendUint32(buf[:0], it.Entity)
		buf = append(buf, byte(it.Layer))
		if it.CastShadows {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(it.LOD))
		for _, f := range it.World {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		for _, f := range it.Rotation {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		for _, f := range it.Tint {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		d.Write(buf)
		for _, name := range [...]string{it.Mesh, it.Material, it.Albedo} {
			d.WriteString(name)
			d.Write([]byte{0})
		}
	}
	return d.Sum64()
}

// RenderSystem collects mesh renderers into a RenderSnapshot once per frame.
type RenderSystem struct {
	*ecs.System[component.MeshRenderer]
	transforms *TransformSystem
	resources  *resource.Manager
	latest     *RenderSnapshot
	camera     component.Vec3
}

func NewRenderSystem(transforms *TransformSystem, resources *resource.Manager, opts ...ecs.SystemOption) *RenderSystem {
	return &RenderSystem{
		System:     ecs.NewSystem[component.MeshRenderer]("MeshRenderer", opts...),
		transforms: transforms,
		resources:  resources,
		latest:     &RenderSnapshot{},
	}
}

// SetCamera moves the point LOD distances are measured from.
func (s *RenderSystem) SetCamera(pos component.Vec3) { s.camera = pos }

// OnBegin targets the owner's own Transform.
func (s *RenderSystem) OnBegin(h ecs.Handle[component.MeshRenderer]) {
	r := h.MustGet()
	r.Tint = [4]float32{1, 1, 1, 1}
	r.CastShadows = true
	if t, err := s.transforms.Get(r.Entity()); err == nil {
		r.Target = t
	}
}

func (s *RenderSystem) OnPreRender(time.Duration) {
	snap := &RenderSnapshot{
		Frame: s.Scene().Frame(),
		Items: make([]RenderItem, 0, s.Len()),
	}
	ecs.Each2(s.System, s.transforms.System, func(e ecs.Entity, rh ecs.Handle[component.MeshRenderer], th ecs.Handle[component.Transform]) {
		r := rh.MustGet()
		t := th.MustGet()
		if target, err := r.Target.Get(); err == nil {
			t = target
		}
		if r.Mesh.IsNull() {
			return
		}
		snap.Items = append(snap.Items, RenderItem{
			Entity:      e.ID(),
			Mesh:        r.Mesh.StableName(s.resources),
			Material:    r.Material.StableName(s.resources),
			Albedo:      r.Albedo.StableName(s.resources),
			Layer:       r.Layer,
			World:       t.World,
			Rotation:    t.WorldRotation,
			Tint:        r.Tint,
			CastShadows: r.CastShadows,
			LOD:         r.LOD(t.World.Sub(s.camera).Length()),
		})
	})
	sort.SliceStable(snap.Items, func(i, j int) bool {
		if snap.Items[i].Layer != snap.Items[j].Layer {
			return snap.Items[i].Layer < snap.Items[j].Layer
		}
		return snap.Items[i].Entity < snap.Items[j].Entity
	})
	snap.Digest = digestItems(snap.Items)
	s.latest = snap
}

// Snapshot returns the snapshot built in the last pre-render pass.
func (s *RenderSystem) Snapshot() *RenderSnapshot { return s.latest }

// RenderWorker stands in for the renderer thread: it consumes the frame's
// snapshot after the scene has finished ticking. A snapshot whose digest
// matches the previous one reuses the previous draw list.
type RenderWorker struct {
	render *RenderSystem
	log    *zap.Logger
	digest uint64

	Frames    uint64
	Unchanged uint64
	Draws     int
	PerLayer  map[component.Layer]int
	LastFrame uint64
}

func NewRenderWorker(render *RenderSystem, log *zap.Logger) *RenderWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RenderWorker{render: render, log: log, PerLayer: make(map[component.Layer]int)}
}

func (w *RenderWorker) Name() string { return "render" }

func (w *RenderWorker) Run(ctx context.Context, frame uint64) error {
	snap := w.render.Snapshot()
	w.Frames++
	w.LastFrame = snap.Frame
	if w.Frames > 1 && snap.Digest == w.digest {
		w.Unchanged++
		return nil
	}
	w.digest = snap.Digest

	clear(w.PerLayer)
	for _, it := range snap.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.PerLayer[it.Layer]++
	}
	w.Draws = len(snap.Items)
	w.log.Debug("frame rendered", zap.Uint64("frame", frame), zap.Int("draws", w.Draws))
	return nil
}
