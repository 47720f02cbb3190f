// Package boot wires config, resources, the scene, its built-in systems, the
// snapshot store and the frame runner into one Engine.
package boot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/l1jgo/engine/internal/archive"
	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/config"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
	coresys "github.com/l1jgo/engine/internal/core/system"
	"github.com/l1jgo/engine/internal/data"
	"github.com/l1jgo/engine/internal/persist"
	"github.com/l1jgo/engine/internal/resource"
	"github.com/l1jgo/engine/internal/scripting"
	"github.com/l1jgo/engine/internal/system"
	"go.uber.org/zap"
)

type Engine struct {
	Config    *config.Config
	Log       *zap.Logger
	Resources *resource.Manager
	Bus       *event.Bus
	Scene     *ecs.Scene
	Systems   *system.Builtins
	Lua       *scripting.Engine
	Archive   *archive.ComponentArchive
	Store     persist.Store
	Runner    *coresys.Runner
	Render    *system.RenderWorker

	format persist.Format
	db     *persist.DB
}

// New builds an Engine from cfg. A missing manifest is logged and skipped;
// everything else that fails aborts the boot.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Engine, error) {
	format, err := persist.ParseFormat(cfg.Archive.Format)
	if err != nil {
		return nil, err
	}
	e := &Engine{Config: cfg, Log: log, format: format}

	e.Resources = resource.RegisterBuiltins(resource.NewManager(log), cfg.Scene.InitialCapacity)
	if err := e.installManifest(cfg.Scene.Manifest); err != nil {
		return nil, err
	}

	e.Bus = event.NewBus()
	e.Scene = ecs.NewScene(cfg.Scene.Name,
		ecs.WithLogger(log),
		ecs.WithEventBus(e.Bus),
		ecs.WithEditorMode(cfg.Engine.EditorMode),
	)
	event.Subscribe(e.Bus, func(ev ecs.EntityDestroyed) {
		log.Debug("entity destroyed", zap.Uint32("entity", ev.Entity.ID()))
	})

	if e.Lua, err = scripting.NewEngine(cfg.Scripting.Dir, log); err != nil {
		return nil, fmt.Errorf("init scripting: %w", err)
	}
	if e.Systems, err = system.RegisterBuiltins(e.Scene, e.Resources, e.Lua, cfg.Scene.InitialCapacity); err != nil {
		e.Lua.Close()
		return nil, err
	}

	e.Archive = archive.New(e.Scene, e.Resources,
		archive.WithChunkSize(cfg.Archive.ChunkSize),
		archive.WithLogger(log),
	)

	if e.Store, err = e.openStore(ctx); err != nil {
		e.Lua.Close()
		return nil, err
	}

	e.Runner = coresys.NewRunner(e.Scene,
		coresys.WithTickRate(cfg.Engine.TickRate),
		coresys.WithMaxFrames(cfg.Engine.MaxFrames),
		coresys.WithWorkerLimit(cfg.Engine.WorkerCount),
		coresys.WithRunnerLogger(log),
	)
	e.Systems.Render.SetCamera(component.Vec3(cfg.Scene.Camera))
	e.Render = system.NewRenderWorker(e.Systems.Render, log)
	e.Runner.Register(e.Render)
	return e, nil
}

func (e *Engine) installManifest(path string) error {
	if path == "" {
		return nil
	}
	m, err := data.LoadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.Log.Warn("resource manifest not found, starting empty", zap.String("path", path))
			return nil
		}
		return err
	}
	if err := m.Install(e.Resources); err != nil {
		return fmt.Errorf("install manifest %s: %w", path, err)
	}
	e.Log.Info("resources loaded", zap.String("manifest", path), zap.Int("count", m.Count()))
	return nil
}

func (e *Engine) openStore(ctx context.Context) (persist.Store, error) {
	if !e.Config.Database.Enabled {
		return persist.NewFileStore(e.Config.Scene.SnapshotDir, e.Log)
	}
	db, err := persist.NewDB(ctx, e.Config.Database, e.Log)
	if err != nil {
		return nil, err
	}
	version, err := persist.RunMigrations(ctx, db.Pool)
	if err != nil {
		db.Close()
		return nil, err
	}
	e.Log.Info("snapshot schema ready", zap.Int64("version", version))
	e.db = db
	return persist.NewSnapshotRepo(db), nil
}

// SpawnPrefabFile spawns the prefabs listed in path. A missing file is
// logged and skipped.
func (e *Engine) SpawnPrefabFile(path string) error {
	if path == "" {
		return nil
	}
	table, err := data.LoadPrefabTable(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.Log.Warn("prefab file not found", zap.String("path", path))
			return nil
		}
		return err
	}
	if _, err := e.SpawnPrefabs(table); err != nil {
		return fmt.Errorf("spawn prefabs %s: %w", path, err)
	}
	return nil
}

// Restore loads the latest snapshot of the scene. It reports false when the
// store has none.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	snap, err := e.Store.Latest(ctx, e.Scene.Name())
	if err != nil {
		if errors.Is(err, persist.ErrNoSnapshot) {
			return false, nil
		}
		return false, err
	}
	if err := e.Decode(snap); err != nil {
		return false, err
	}
	e.Log.Info("scene restored",
		zap.String("scene", snap.Scene),
		zap.Stringer("format", snap.Format),
		zap.Uint64("saved_frame", snap.Frame),
		zap.Int("entities", e.Scene.EntityCount()),
	)
	return true, nil
}

// Decode loads a snapshot payload into the scene with the backend its
// format names.
func (e *Engine) Decode(snap persist.Snapshot) error {
	switch snap.Format {
	case persist.FormatBinary:
		return e.Archive.Load(snap.Payload)
	case persist.FormatYAML:
		doc, err := archive.UnmarshalDocument(snap.Payload)
		if err != nil {
			return err
		}
		return e.Archive.Import(doc)
	}
	return fmt.Errorf("snapshot format %s not supported", snap.Format)
}

// Encode captures the scene in the configured format.
func (e *Engine) Encode() (persist.Snapshot, error) {
	return e.EncodeAs(e.format)
}

// EncodeAs captures the scene in format.
func (e *Engine) EncodeAs(format persist.Format) (persist.Snapshot, error) {
	snap := persist.Snapshot{Scene: e.Scene.Name(), Frame: e.Scene.Frame(), Format: format}
	var err error
	switch format {
	case persist.FormatYAML:
		var doc *archive.Document
		if doc, err = e.Archive.Export(); err == nil {
			snap.Payload, err = archive.MarshalDocument(doc)
		}
	default:
		snap.Payload, err = e.Archive.Save()
	}
	return snap, err
}

// Snapshot encodes the scene and saves it to the store.
func (e *Engine) Snapshot(ctx context.Context) error {
	snap, err := e.Encode()
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if err := e.Store.Save(ctx, snap); err != nil {
		return err
	}
	e.Log.Info("scene saved",
		zap.String("scene", snap.Scene),
		zap.Stringer("format", snap.Format),
		zap.Int("bytes", len(snap.Payload)),
	)
	return nil
}

// Close shuts the scene down and releases the VM and database.
func (e *Engine) Close() {
	e.Scene.Shutdown()
	e.Lua.Close()
	if e.db != nil {
		e.db.Close()
	}
}
