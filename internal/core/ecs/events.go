package ecs

// Scene lifecycle events. Emitted into the scene's event bus in frame N and
// delivered to subscribers at the start of frame N+1.

type EntityCreated struct {
	Entity Entity
}

type EntityDestroyed struct {
	Entity Entity
}

type ComponentAdded struct {
	Entity Entity
	System string
}

type ComponentRemoved struct {
	Entity Entity
	System string
}
