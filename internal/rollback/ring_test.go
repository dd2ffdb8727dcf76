package rollback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/glovebox/server/internal/gameplay"
)

func TestRingShiftRepeatsHead(t *testing.T) {
	r := newInputRing(5)
	r.set(0, gameplay.InputUp)
	r.set(1, gameplay.InputLeft)

	r.shift(2)
	assert.Equal(t, []gameplay.Input{
		gameplay.InputUp, gameplay.InputUp, gameplay.InputUp, gameplay.InputLeft, 0,
	}, r.buf)

	r.shift(9)
	for _, in := range r.buf {
		assert.Equal(t, gameplay.InputUp, in)
	}
}

func TestRingBoundsClamp(t *testing.T) {
	r := newInputRing(3)
	assert.False(t, r.set(3, gameplay.InputDown))
	r.set(2, gameplay.InputDown)
	assert.Equal(t, gameplay.InputDown, r.at(2))
	assert.Equal(t, gameplay.InputDown, r.at(100))
}

// The ring must agree with a naive frame-indexed model.
func TestRingMatchesModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(2, 16).Draw(t, "size")
		r := newInputRing(size)
		model := map[int]gameplay.Input{}
		head := 0

		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			if rapid.Bool().Draw(t, "advance") {
				delta := rapid.IntRange(0, size+2).Draw(t, "delta")
				for f := head + 1; f <= head+delta; f++ {
					model[f] = model[head]
				}
				head += delta
				r.shift(uint32(delta))
				continue
			}
			offset := rapid.IntRange(0, size-1).Draw(t, "offset")
			if offset > head {
				continue
			}
			in := gameplay.Input(rapid.Uint8Range(0, 63).Draw(t, "input"))
			r.set(uint32(offset), in)
			model[head-offset] = in
		}
		for off := 0; off < size && off <= head; off++ {
			if r.at(uint32(off)) != model[head-off] {
				t.Fatalf("offset %d: ring %v, model %v", off, r.at(uint32(off)), model[head-off])
			}
		}
	})
}
