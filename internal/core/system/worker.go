package system

import "context"

// Worker runs outside the ECS once per frame, after the scene has finished
// ticking and before the next tick starts. Workers only read frame
// snapshots; they must not touch the scene.
type Worker interface {
	Name() string
	Run(ctx context.Context, frame uint64) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc struct {
	ID string
	Fn func(ctx context.Context, frame uint64) error
}

func (w WorkerFunc) Name() string { return w.ID }

func (w WorkerFunc) Run(ctx context.Context, frame uint64) error { return w.Fn(ctx, frame) }
