package packet

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/google/uuid"
)

// ErrShort is reported by Reader.Err after a read ran past the payload.
var ErrShort = errors.New("packet too short")

// Reader reads fields from one message payload.
// Byte 0 is always the opcode. Reads past the end return zero values and
// latch ErrShort.
type Reader struct {
	data  []byte
	off   int
	short bool
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

func (r *Reader) need(n int) bool {
	if r.off+n > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return false
	}
	return true
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadDU reads 4 bytes as little-endian uint32.
func (r *Reader) ReadDU() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

// ReadQ reads 8 bytes as little-endian int64.
func (r *Reader) ReadQ() int64 {
	if !r.need(8) {
		return 0
	}
	v := int64(binary.LittleEndian.Uint64(r.data[r.off:]))
	r.off += 8
	return v
}

func (r *Reader) ReadF() float32 {
	return math.Float32frombits(r.ReadDU())
}

func (r *Reader) ReadUUID() uuid.UUID {
	var id uuid.UUID
	if !r.need(len(id)) {
		return uuid.Nil
	}
	copy(id[:], r.data[r.off:])
	r.off += len(id)
	return id
}

// ReadS reads a null-terminated string and normalizes it as a display name.
func (r *Reader) ReadS() string {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			raw := r.data[start:r.off]
			r.off++ // skip null terminator
			return NormalizeName(string(raw))
		}
		r.off++
	}
	r.short = true
	return NormalizeName(string(r.data[start:r.off]))
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Err returns ErrShort once any read ran out of data.
func (r *Reader) Err() error {
	if r.short {
		return ErrShort
	}
	return nil
}
