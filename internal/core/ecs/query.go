package ecs

// Each visits live entities in ascending index order that carry every kind
// in with and none of the kinds in without.
func (r *Registry) Each(with, without Mask, fn func(EntityID)) {
	for i := uint32(0); i < r.nextIndex; i++ {
		if !r.alive[i] {
			continue
		}
		m := r.masks[i]
		if !m.Contains(with) || m.Any(without) {
			continue
		}
		fn(NewEntityID(i, r.generations[i]))
	}
}

// Each2 iterates entities carrying with and not without, handing out
// pointers into both stores.
func Each2[A, B any](r *Registry, with, without Mask, sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	r.Each(with, without, func(id EntityID) {
		fn(id, sa.Get(id), sb.Get(id))
	})
}
