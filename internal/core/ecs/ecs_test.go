package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateDestroyReusesIndexWithNewGeneration(t *testing.T) {
	r := NewRegistry()
	a := r.Create()
	b := r.Create()
	require.NotEqual(t, InvalidEntity, a)
	assert.Equal(t, uint32(0), a.Index())
	assert.Equal(t, uint32(1), b.Index())

	r.Destroy(a)
	assert.False(t, r.Alive(a))

	c := r.Create()
	assert.Equal(t, a.Index(), c.Index())
	assert.NotEqual(t, a.Generation(), c.Generation())
	assert.False(t, r.Alive(a), "stale id must stay dead after reuse")
	assert.True(t, r.Alive(c))
	assert.Equal(t, 2, r.Count())
}

func TestRegistryHasComponentRequiresAllBits(t *testing.T) {
	r := NewRegistry()
	id := r.Create()
	r.AddComponent(id, KindBody|KindCollider)

	assert.True(t, r.HasComponent(id, KindBody))
	assert.True(t, r.HasComponent(id, KindBody|KindCollider))
	assert.False(t, r.HasComponent(id, KindBody|KindGlove))

	r.RemoveComponent(id, KindCollider)
	assert.False(t, r.HasComponent(id, KindCollider))
	assert.Equal(t, KindBody, r.Mask(id))
}

func TestRegistryEachOrderAndFilter(t *testing.T) {
	r := NewRegistry()
	var ids []EntityID
	for i := 0; i < 5; i++ {
		id := r.Create()
		r.AddComponent(id, KindBody)
		ids = append(ids, id)
	}
	r.AddComponent(ids[2], KindDestroyed)
	r.Destroy(ids[3])

	var seen []EntityID
	r.Each(KindBody, KindDestroyed, func(id EntityID) { seen = append(seen, id) })
	assert.Equal(t, []EntityID{ids[0], ids[1], ids[4]}, seen)
}

func TestStoreCopyAllFromIsIndependent(t *testing.T) {
	type pos struct{ X, Y float32 }
	r := NewRegistry()
	id := r.Create()

	src := NewStore[pos]()
	dst := NewStore[pos]()
	src.Add(id, pos{1, 2})
	dst.CopyAllFrom(src)
	require.Equal(t, pos{1, 2}, dst.Value(id))

	src.Get(id).X = 9
	assert.Equal(t, float32(1), dst.Value(id).X)

	dst.Remove(id)
	assert.Equal(t, pos{}, dst.Value(id))
	assert.Equal(t, pos{9, 2}, src.Value(id))
}

func TestWorldSweepAndClearDestroyed(t *testing.T) {
	w := NewWorld()
	store := NewStore[int]()
	w.RegisterStore(store)

	a := w.CreateEntity()
	b := w.CreateEntity()
	store.Add(a, 10)
	store.Add(b, 20)

	w.MarkDestroyed(a)
	assert.True(t, w.IsDestroyed(a))
	w.ClearDestroyed()
	assert.False(t, w.IsDestroyed(a))

	w.MarkDestroyed(b)
	swept := w.Sweep()
	assert.Equal(t, []EntityID{b}, swept)
	assert.False(t, w.Alive(b))
	assert.True(t, w.Alive(a))
	assert.Equal(t, 0, store.Value(b))
	assert.Equal(t, 10, store.Value(a))
}
