package rollback

import "github.com/glovebox/server/internal/gameplay"

// Frame is a fixed-step index. Frames only move forward.
type Frame = uint32

// inputRing holds one player's inputs, newest first: slot 0 is the head
// frame, slot i is head-i.
type inputRing struct {
	buf []gameplay.Input
}

func newInputRing(size int) *inputRing {
	return &inputRing{buf: make([]gameplay.Input, size)}
}

func (r *inputRing) len() uint32 { return uint32(len(r.buf)) }

// at returns the input offset frames behind the head. Offsets past the
// buffer depth read the oldest slot.
func (r *inputRing) at(offset uint32) gameplay.Input {
	if offset >= r.len() {
		offset = r.len() - 1
	}
	return r.buf[offset]
}

// set writes the input offset frames behind the head. Offsets past the
// buffer depth are dropped; it reports whether the write landed.
func (r *inputRing) set(offset uint32, in gameplay.Input) bool {
	if offset >= r.len() {
		return false
	}
	r.buf[offset] = in
	return true
}

// fill writes in to slots [0, n).
func (r *inputRing) fill(n uint32, in gameplay.Input) {
	if n > r.len() {
		n = r.len()
	}
	for i := uint32(0); i < n; i++ {
		r.buf[i] = in
	}
}

// shift moves the head delta frames forward. New slots repeat the old
// head input so a silent player keeps holding the same buttons.
func (r *inputRing) shift(delta uint32) {
	if delta == 0 {
		return
	}
	head := r.buf[0]
	if delta >= r.len() {
		r.fill(r.len(), head)
		return
	}
	copy(r.buf[delta:], r.buf[:r.len()-delta])
	r.fill(delta, head)
}

// history copies up to n inputs starting at the head into dst.
func (r *inputRing) history(dst []gameplay.Input, n int) []gameplay.Input {
	if n > len(r.buf) {
		n = len(r.buf)
	}
	return append(dst[:0], r.buf[:n]...)
}
