package ecs

// Removable is implemented by all component stores so the World can
// wipe an entity's data from every store on a hard destroy.
type Removable interface {
	Remove(id EntityID)
}

// Store is a dense, value-typed component array indexed by entity index.
// Slots hold values, never pointers, so CopyAllFrom yields an independent copy.
type Store[T any] struct {
	data []T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{data: make([]T, 0, 64)}
}

func (s *Store[T]) grow(idx uint32) {
	if int(idx) < len(s.data) {
		return
	}
	var zero T
	for len(s.data) <= int(idx) {
		s.data = append(s.data, zero)
	}
}

// Add writes c into the slot of id, growing the store as needed.
func (s *Store[T]) Add(id EntityID, c T) {
	s.grow(id.Index())
	s.data[id.Index()] = c
}

// Set is Add under another name; callers use it for updates.
func (s *Store[T]) Set(id EntityID, c T) {
	s.Add(id, c)
}

// Remove resets the slot of id to the zero value.
func (s *Store[T]) Remove(id EntityID) {
	idx := id.Index()
	if int(idx) >= len(s.data) {
		return
	}
	var zero T
	s.data[idx] = zero
}

// Get returns a pointer into the slot of id. The pointer stays valid
// until the next Add, Set or CopyAllFrom that grows the store.
func (s *Store[T]) Get(id EntityID) *T {
	s.grow(id.Index())
	return &s.data[id.Index()]
}

// Value returns a copy of the slot of id, or the zero value when unset.
func (s *Store[T]) Value(id EntityID) T {
	idx := id.Index()
	if int(idx) >= len(s.data) {
		var zero T
		return zero
	}
	return s.data[idx]
}

// CopyAllFrom overwrites every slot with the matching slot of other.
func (s *Store[T]) CopyAllFrom(other *Store[T]) {
	s.data = append(s.data[:0], other.data...)
}

// Len is the number of allocated slots, not the number of live components.
func (s *Store[T]) Len() int {
	return len(s.data)
}
