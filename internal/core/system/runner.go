package system

import (
	"context"
	"fmt"
	"time"

	"github.com/l1jgo/engine/internal/core/ecs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner drives a scene at a fixed rate. Each frame it ticks the scene, then
// starts every worker and waits for all of them before the next frame, so
// workers never overlap scene mutation.
type Runner struct {
	scene     *ecs.Scene
	workers   []Worker
	interval  time.Duration
	maxFrames uint64
	limit     int
	frames    uint64
	log       *zap.Logger
}

type RunnerOption func(*Runner)

// WithTickRate sets frames per second. Zero keeps the default of 60.
func WithTickRate(hz int) RunnerOption {
	return func(r *Runner) {
		if hz > 0 {
			r.interval = time.Second / time.Duration(hz)
		}
	}
}

// WithMaxFrames stops Run after n frames. Zero runs until cancelled.
func WithMaxFrames(n uint64) RunnerOption {
	return func(r *Runner) { r.maxFrames = n }
}

// WithWorkerLimit caps how many workers run at once. Zero is unlimited.
func WithWorkerLimit(n int) RunnerOption {
	return func(r *Runner) { r.limit = n }
}

func WithRunnerLogger(log *zap.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

func NewRunner(scene *ecs.Scene, opts ...RunnerOption) *Runner {
	r := &Runner{
		scene:    scene,
		workers:  make([]Worker, 0, 4),
		interval: time.Second / 60,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) Register(w Worker) {
	r.workers = append(r.workers, w)
}

func (r *Runner) Frames() uint64          { return r.frames }
func (r *Runner) Interval() time.Duration { return r.interval }

// Step runs one frame: scene tick, then all workers in parallel. The first
// worker error cancels the others and is returned.
func (r *Runner) Step(ctx context.Context, dt time.Duration) error {
	r.scene.Tick(dt)
	r.frames++
	frame := r.scene.Frame()

	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, w := range r.workers {
		g.Go(func() error {
			if err := w.Run(gctx, frame); err != nil {
				return fmt.Errorf("worker %s frame %d: %w", w.Name(), frame, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Run steps the scene on a ticker until ctx is cancelled, MaxFrames is
// reached or a worker fails. Cancellation is a clean stop.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("runner started",
		zap.String("scene", r.scene.Name()),
		zap.Duration("interval", r.interval),
		zap.Int("workers", len(r.workers)),
	)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("runner stopped", zap.Uint64("frames", r.frames))
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := r.Step(ctx, dt); err != nil {
				return err
			}
			if r.maxFrames > 0 && r.frames >= r.maxFrames {
				r.log.Info("runner reached frame limit", zap.Uint64("frames", r.frames))
				return nil
			}
		}
	}
}
