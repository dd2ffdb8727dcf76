package ecs

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1 so the zero value never names a live entity.
type EntityID uint64

// InvalidEntity is returned by lookups that have nothing to return.
const InvalidEntity EntityID = 0

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// Registry allocates entity ids from a dense index range and records which
// component kinds each live entity carries.
type Registry struct {
	generations []uint32
	masks       []Mask
	alive       []bool
	freeList    []uint32
	nextIndex   uint32
}

func NewRegistry() *Registry {
	return &Registry{
		generations: make([]uint32, 0, 64),
		masks:       make([]Mask, 0, 64),
		alive:       make([]bool, 0, 64),
		freeList:    make([]uint32, 0, 16),
	}
}

func (r *Registry) Create() EntityID {
	if len(r.freeList) > 0 {
		idx := r.freeList[len(r.freeList)-1]
		r.freeList = r.freeList[:len(r.freeList)-1]
		r.alive[idx] = true
		r.masks[idx] = 0
		return NewEntityID(idx, r.generations[idx])
	}
	idx := r.nextIndex
	r.nextIndex++
	r.generations = append(r.generations, 1)
	r.masks = append(r.masks, 0)
	r.alive = append(r.alive, true)
	return NewEntityID(idx, 1)
}

func (r *Registry) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= r.nextIndex {
		return false
	}
	return r.alive[idx] && r.generations[idx] == id.Generation()
}

// Destroy releases the id immediately. Stale ids are ignored.
func (r *Registry) Destroy(id EntityID) {
	if !r.Alive(id) {
		return
	}
	idx := id.Index()
	r.masks[idx] = 0
	r.alive[idx] = false
	r.generations[idx]++
	r.freeList = append(r.freeList, idx)
}

func (r *Registry) AddComponent(id EntityID, m Mask) {
	if !r.Alive(id) {
		return
	}
	r.masks[id.Index()] |= m
}

func (r *Registry) RemoveComponent(id EntityID, m Mask) {
	if !r.Alive(id) {
		return
	}
	r.masks[id.Index()] &^= m
}

// HasComponent reports whether every bit of m is present on id.
func (r *Registry) HasComponent(id EntityID, m Mask) bool {
	if !r.Alive(id) {
		return false
	}
	return r.masks[id.Index()].Contains(m)
}

// Mask returns the component mask of id, or 0 for dead ids.
func (r *Registry) Mask(id EntityID) Mask {
	if !r.Alive(id) {
		return 0
	}
	return r.masks[id.Index()]
}

// Size is the upper bound of the dense index range [0, Size).
func (r *Registry) Size() int {
	return int(r.nextIndex)
}

// At returns the live entity occupying index i.
func (r *Registry) At(i int) (EntityID, bool) {
	if i < 0 || i >= int(r.nextIndex) || !r.alive[i] {
		return InvalidEntity, false
	}
	return NewEntityID(uint32(i), r.generations[i]), true
}

// Count returns the number of live entities.
func (r *Registry) Count() int {
	return int(r.nextIndex) - len(r.freeList)
}
