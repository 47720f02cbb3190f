package system

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunnerStep(t *testing.T) {
	scene := ecs.NewScene("runner")
	r := NewRunner(scene, WithRunnerLogger(zaptest.NewLogger(t)))

	var seen [2]atomic.Uint64
	for i := range seen {
		r.Register(WorkerFunc{ID: "w", Fn: func(_ context.Context, frame uint64) error {
			seen[i].Store(frame)
			return nil
		}})
	}

	require.NoError(t, r.Step(context.Background(), time.Millisecond))
	require.NoError(t, r.Step(context.Background(), time.Millisecond))
	require.Equal(t, uint64(2), r.Frames())
	require.Equal(t, uint64(2), scene.Frame())
	require.Equal(t, uint64(2), seen[0].Load())
	require.Equal(t, uint64(2), seen[1].Load())
}

func TestRunnerWorkerLimit(t *testing.T) {
	r := NewRunner(ecs.NewScene("runner"), WithWorkerLimit(1))
	var running, peak atomic.Int32
	for i := 0; i < 4; i++ {
		r.Register(WorkerFunc{ID: "w", Fn: func(context.Context, uint64) error {
			n := running.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		}})
	}
	require.NoError(t, r.Step(context.Background(), time.Millisecond))
	require.Equal(t, int32(1), peak.Load())
}

func TestRunnerWorkerError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRunner(ecs.NewScene("runner"))
	r.Register(WorkerFunc{ID: "bad", Fn: func(context.Context, uint64) error { return boom }})
	r.Register(WorkerFunc{ID: "slow", Fn: func(ctx context.Context, _ uint64) error {
		<-ctx.Done()
		return nil
	}})

	err := r.Step(context.Background(), time.Millisecond)
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "worker bad frame 1")
}

func TestRunnerRun(t *testing.T) {
	t.Run("stops at max frames", func(t *testing.T) {
		r := NewRunner(ecs.NewScene("runner"), WithTickRate(1000), WithMaxFrames(3))
		require.Equal(t, time.Millisecond, r.Interval())
		require.NoError(t, r.Run(context.Background()))
		require.Equal(t, uint64(3), r.Frames())
	})

	t.Run("cancellation is a clean stop", func(t *testing.T) {
		r := NewRunner(ecs.NewScene("runner"), WithTickRate(1000))
		ctx, cancel := context.WithCancel(context.Background())
		r.Register(WorkerFunc{ID: "stopper", Fn: func(_ context.Context, frame uint64) error {
			if frame == 2 {
				cancel()
			}
			return nil
		}})
		require.NoError(t, r.Run(ctx))
		require.GreaterOrEqual(t, r.Frames(), uint64(2))
	})
}
