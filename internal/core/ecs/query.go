package ecs

// Each2 visits entities that have both an A and a B component. It walks the
// smaller system in slot order and looks each owner up in the larger one.
func Each2[A, B any](sa *System[A], sb *System[B], fn func(Entity, Handle[A], Handle[B])) {
	if sa.Len() <= sb.Len() {
		for ha, a := range sa.All() {
			e := baseOf(a).entity
			if hb, err := sb.Get(e); err == nil {
				fn(e, ha, hb)
			}
		}
		return
	}
	for hb, b := range sb.All() {
		e := baseOf(b).entity
		if ha, err := sa.Get(e); err == nil {
			fn(e, ha, hb)
		}
	}
}
