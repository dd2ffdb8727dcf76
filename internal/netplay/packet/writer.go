package packet

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Writer builds one message payload. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

func NewWriterWithOpcode(opcode byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 64)}
	w.WriteC(opcode)
	return w
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteDU writes 4 bytes little-endian unsigned.
func (w *Writer) WriteDU(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteQ writes 8 bytes little-endian (signed via cast).
func (w *Writer) WriteQ(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

// WriteF writes the IEEE-754 bits of v, so floats cross the wire exactly.
func (w *Writer) WriteF(v float32) {
	w.WriteDU(math.Float32bits(v))
}

func (w *Writer) WriteUUID(id uuid.UUID) {
	w.buf = append(w.buf, id[:]...)
}

// WriteS writes a null-terminated UTF-8 string. Names are normalized first.
func (w *Writer) WriteS(s string) {
	w.buf = append(w.buf, NormalizeName(s)...)
	w.buf = append(w.buf, 0)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}
