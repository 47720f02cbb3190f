package ecs

import (
	"time"

	"github.com/l1jgo/engine/internal/core/reflection"
)

// Optional hooks. A concrete system embeds *System[T] and implements any of
// these; the embedded System detects them at dispatch time. Per-component
// hooks receive the target handle explicitly.

type Beginner[T any] interface {
	OnBegin(h Handle[T])
}

type Ender[T any] interface {
	OnEnd(h Handle[T])
}

// EntityObserver is notified of every entity the scene creates, before any
// gameplay code sees it. It may attach default components.
type EntityObserver interface {
	OnNewEntity(e Entity)
}

type Ticker interface {
	OnTick(dt time.Duration)
}

type LateTicker interface {
	OnLateTick(dt time.Duration)
}

// PreRenderer runs after every system's tick and late tick for the frame.
type PreRenderer interface {
	OnPreRender(dt time.Duration)
}

// Serializer overrides the component's own Reflect body.
type Serializer[T any] interface {
	Serialize(h Handle[T], ctx reflection.Context)
}

// Inspector exposes editor-facing fields; defaults to the serialize body.
type Inspector[T any] interface {
	Inspect(h Handle[T], ctx reflection.Context)
}

type ShutdownHook interface {
	OnShutdown()
}
