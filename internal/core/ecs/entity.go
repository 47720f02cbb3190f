package ecs

import "fmt"

// Entity is a lightweight (scene, id) key. Id 0 is reserved as null.
// Entities carry no generation: once an id is recycled, an old Entity value
// compares equal to the new entity that received the id.
type Entity struct {
	scene *Scene
	id    uint32
}

func (e Entity) ID() uint32     { return e.id }
func (e Entity) Scene() *Scene  { return e.scene }
func (e Entity) IsZero() bool   { return e.id == 0 }
func (e Entity) String() string { return fmt.Sprintf("Entity(%d)", e.id) }

// IsValid reports whether the id is nonzero and currently allocated in its scene.
func (e Entity) IsValid() bool {
	return e.id != 0 && e.scene != nil && e.scene.ids.Alive(e.id)
}

// IDPool hands out entity ids. Freed ids are reused oldest-first; a fresh id
// is minted only when the free queue is empty.
type IDPool struct {
	live    []bool // indexed by id, live[0] unused
	free    []uint32
	counter uint32
}

func NewIDPool() *IDPool {
	return &IDPool{
		live: make([]bool, 1, 1024),
		free: make([]uint32, 0, 256),
	}
}

func (p *IDPool) Create() uint32 {
	if len(p.free) > 0 {
		id := p.free[0]
		p.free = p.free[1:]
		p.live[id] = true
		return id
	}
	p.counter++
	id := p.counter
	p.ensure(id)
	p.live[id] = true
	return id
}

// Claim marks a specific id as allocated. Ids skipped over by advancing the
// counter are queued as free in ascending order.
func (p *IDPool) Claim(id uint32) error {
	if id == 0 {
		return ErrInvalidEntity
	}
	if p.Alive(id) {
		return fmt.Errorf("claim id %d: %w", id, ErrEntityAlive)
	}
	if id > p.counter {
		for skipped := p.counter + 1; skipped < id; skipped++ {
			p.ensure(skipped)
			p.free = append(p.free, skipped)
		}
		p.counter = id
		p.ensure(id)
	} else {
		for i, f := range p.free {
			if f == id {
				p.free = append(p.free[:i], p.free[i+1:]...)
				break
			}
		}
	}
	p.live[id] = true
	return nil
}

func (p *IDPool) Alive(id uint32) bool {
	return id != 0 && int(id) < len(p.live) && p.live[id]
}

// Destroy frees id. Unknown or already free ids are ignored.
func (p *IDPool) Destroy(id uint32) bool {
	if !p.Alive(id) {
		return false
	}
	p.live[id] = false
	p.free = append(p.free, id)
	return true
}

// Live returns allocated ids in ascending order.
func (p *IDPool) Live() []uint32 {
	out := make([]uint32, 0, len(p.live))
	for id := 1; id < len(p.live); id++ {
		if p.live[id] {
			out = append(out, uint32(id))
		}
	}
	return out
}

// Free returns the queued free ids, oldest first.
func (p *IDPool) Free() []uint32 {
	return append([]uint32(nil), p.free...)
}

// RestoreFree puts the listed ids at the head of the free queue in the given
// order. Listed ids past the counter are minted as free first; live ids are
// ignored. Free ids missing from order follow in their current order.
func (p *IDPool) RestoreFree(order []uint32) {
	for _, id := range order {
		for id > p.counter {
			p.counter++
			p.ensure(p.counter)
			p.free = append(p.free, p.counter)
		}
	}
	queued := make(map[uint32]bool, len(p.free))
	for _, id := range p.free {
		queued[id] = true
	}
	free := make([]uint32, 0, len(p.free))
	for _, id := range order {
		if queued[id] {
			free = append(free, id)
			delete(queued, id)
		}
	}
	for _, id := range p.free {
		if queued[id] {
			free = append(free, id)
		}
	}
	p.free = free
}

func (p *IDPool) ensure(id uint32) {
	for int(id) >= len(p.live) {
		p.live = append(p.live, false)
	}
}
