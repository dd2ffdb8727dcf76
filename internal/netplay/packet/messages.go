package packet

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/glovebox/server/internal/core/geom"
	"github.com/glovebox/server/internal/gameplay"
)

// Opcodes. Byte 0 of every payload.
const (
	OpJoin byte = iota + 1
	OpJoinAck
	OpSpawnPlayer
	OpStartGame
	OpPlayerInput
	OpConfirmFrame
	OpWinGame
)

// MaxInputHistory bounds the input count of one PlayerInput message.
const MaxInputHistory = 255

// Message is one typed protocol message.
type Message interface {
	Opcode() byte
	encode(w *Writer)
	decode(r *Reader)
}

// Join is sent by a client on connect. StartTime is the client's wall
// clock in milliseconds since the epoch.
type Join struct {
	ClientID  uuid.UUID
	Name      string
	StartTime int64
}

// JoinAck assigns a player number to a client.
type JoinAck struct {
	ClientID uuid.UUID
	Player   gameplay.PlayerNumber
}

// SpawnPlayer announces a player and its spawn transform.
type SpawnPlayer struct {
	ClientID uuid.UUID
	Player   gameplay.PlayerNumber
	Position geom.Vec2
	Rotation float32
}

// StartGame carries the wall-clock instant, in milliseconds since the
// epoch, at which clients begin stepping frames.
type StartGame struct {
	StartAt int64
}

// PlayerInput carries the inputs of one player, Inputs[i] being the input
// at Frame-i.
type PlayerInput struct {
	Player gameplay.PlayerNumber
	Frame  uint32
	Inputs []gameplay.Input
}

// ConfirmFrame carries the authoritative per-player checksums of Frame.
type ConfirmFrame struct {
	Frame     uint32
	Checksums [gameplay.MaxPlayers]uint32
}

// WinGame ends the match. Winner is gameplay.InvalidPlayer when nobody won.
type WinGame struct {
	Winner gameplay.PlayerNumber
}

func (*Join) Opcode() byte         { return OpJoin }
func (*JoinAck) Opcode() byte      { return OpJoinAck }
func (*SpawnPlayer) Opcode() byte  { return OpSpawnPlayer }
func (*StartGame) Opcode() byte    { return OpStartGame }
func (*PlayerInput) Opcode() byte  { return OpPlayerInput }
func (*ConfirmFrame) Opcode() byte { return OpConfirmFrame }
func (*WinGame) Opcode() byte      { return OpWinGame }

func (m *Join) encode(w *Writer) {
	w.WriteUUID(m.ClientID)
	w.WriteQ(m.StartTime)
	w.WriteS(m.Name)
}

func (m *Join) decode(r *Reader) {
	m.ClientID = r.ReadUUID()
	m.StartTime = r.ReadQ()
	m.Name = r.ReadS()
}

func (m *JoinAck) encode(w *Writer) {
	w.WriteUUID(m.ClientID)
	w.WriteC(byte(m.Player))
}

func (m *JoinAck) decode(r *Reader) {
	m.ClientID = r.ReadUUID()
	m.Player = gameplay.PlayerNumber(r.ReadC())
}

func (m *SpawnPlayer) encode(w *Writer) {
	w.WriteUUID(m.ClientID)
	w.WriteC(byte(m.Player))
	w.WriteF(m.Position.X)
	w.WriteF(m.Position.Y)
	w.WriteF(m.Rotation)
}

func (m *SpawnPlayer) decode(r *Reader) {
	m.ClientID = r.ReadUUID()
	m.Player = gameplay.PlayerNumber(r.ReadC())
	m.Position.X = r.ReadF()
	m.Position.Y = r.ReadF()
	m.Rotation = r.ReadF()
}

func (m *StartGame) encode(w *Writer) { w.WriteQ(m.StartAt) }
func (m *StartGame) decode(r *Reader) { m.StartAt = r.ReadQ() }

func (m *PlayerInput) encode(w *Writer) {
	inputs := m.Inputs
	if len(inputs) > MaxInputHistory {
		inputs = inputs[:MaxInputHistory]
	}
	w.WriteC(byte(m.Player))
	w.WriteDU(m.Frame)
	w.WriteC(byte(len(inputs)))
	for _, in := range inputs {
		w.WriteC(byte(in))
	}
}

func (m *PlayerInput) decode(r *Reader) {
	m.Player = gameplay.PlayerNumber(r.ReadC())
	m.Frame = r.ReadDU()
	n := int(r.ReadC())
	m.Inputs = make([]gameplay.Input, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Inputs = append(m.Inputs, gameplay.Input(r.ReadC()))
	}
}

func (m *ConfirmFrame) encode(w *Writer) {
	w.WriteDU(m.Frame)
	for _, c := range m.Checksums {
		w.WriteDU(c)
	}
}

func (m *ConfirmFrame) decode(r *Reader) {
	m.Frame = r.ReadDU()
	for i := range m.Checksums {
		m.Checksums[i] = r.ReadDU()
	}
}

func (m *WinGame) encode(w *Writer) { w.WriteC(byte(m.Winner)) }
func (m *WinGame) decode(r *Reader) { m.Winner = gameplay.PlayerNumber(r.ReadC()) }

// Encode returns the payload of m, opcode first.
func Encode(m Message) []byte {
	w := NewWriterWithOpcode(m.Opcode())
	m.encode(w)
	return w.Bytes()
}

func newMessage(opcode byte) Message {
	switch opcode {
	case OpJoin:
		return &Join{}
	case OpJoinAck:
		return &JoinAck{}
	case OpSpawnPlayer:
		return &SpawnPlayer{}
	case OpStartGame:
		return &StartGame{}
	case OpPlayerInput:
		return &PlayerInput{}
	case OpConfirmFrame:
		return &ConfirmFrame{}
	case OpWinGame:
		return &WinGame{}
	}
	return nil
}

// Decode parses one payload produced by Encode.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty packet")
	}
	m := newMessage(data[0])
	if m == nil {
		return nil, fmt.Errorf("unknown opcode %d", data[0])
	}
	r := NewReader(data)
	m.decode(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode opcode %d: %w", data[0], err)
	}
	return m, nil
}
