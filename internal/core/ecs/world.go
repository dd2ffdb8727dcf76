package ecs

// World is the top-level ECS container. It owns the entity registry and the
// list of stores wiped on a hard destroy. Soft destruction is a tombstone
// bit: MarkDestroyed hides an entity from queries until Sweep releases it
// or ClearDestroyed revives it.
type World struct {
	registry *Registry
	stores   []Removable
	swept    []EntityID
}

func NewWorld() *World {
	return &World{
		registry: NewRegistry(),
		stores:   make([]Removable, 0, 16),
		swept:    make([]EntityID, 0, 16),
	}
}

func (w *World) Registry() *Registry { return w.registry }

// RegisterStore adds a store to the set wiped on Destroy.
func (w *World) RegisterStore(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World) CreateEntity() EntityID {
	return w.registry.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.registry.Alive(id)
}

// Destroy clears the entity from every registered store and frees its id.
func (w *World) Destroy(id EntityID) {
	if !w.registry.Alive(id) {
		return
	}
	for _, s := range w.stores {
		s.Remove(id)
	}
	w.registry.Destroy(id)
}

// MarkDestroyed sets the tombstone bit on id.
func (w *World) MarkDestroyed(id EntityID) {
	w.registry.AddComponent(id, KindDestroyed)
}

func (w *World) IsDestroyed(id EntityID) bool {
	return w.registry.HasComponent(id, KindDestroyed)
}

// ClearDestroyed revives every tombstoned entity.
func (w *World) ClearDestroyed() {
	w.registry.Each(KindDestroyed, 0, func(id EntityID) {
		w.registry.RemoveComponent(id, KindDestroyed)
	})
}

// Sweep hard-destroys every tombstoned entity and returns the released ids.
// The returned slice is reused by the next call.
func (w *World) Sweep() []EntityID {
	w.swept = w.swept[:0]
	w.registry.Each(KindDestroyed, 0, func(id EntityID) {
		w.swept = append(w.swept, id)
	})
	for _, id := range w.swept {
		w.Destroy(id)
	}
	return w.swept
}
