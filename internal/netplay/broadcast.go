package netplay

import (
	"github.com/glovebox/server/internal/netplay/packet"
)

// Broadcaster sends every message to all sessions it tracks. TCP carries
// both delivery classes, so reliable and unreliable sends are the same.
// Game loop only.
type Broadcaster struct {
	sessions map[uint64]*Session
	order    []uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{sessions: make(map[uint64]*Session)}
}

func (b *Broadcaster) Add(s *Session) {
	if _, ok := b.sessions[s.ID]; ok {
		return
	}
	b.sessions[s.ID] = s
	b.order = append(b.order, s.ID)
}

func (b *Broadcaster) Remove(id uint64) {
	if _, ok := b.sessions[id]; !ok {
		return
	}
	delete(b.sessions, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Broadcaster) Get(id uint64) *Session { return b.sessions[id] }
func (b *Broadcaster) Len() int               { return len(b.order) }

// Each calls fn for every session in the order they were added.
func (b *Broadcaster) Each(fn func(*Session)) {
	for _, id := range b.order {
		fn(b.sessions[id])
	}
}

func (b *Broadcaster) SendReliable(msg packet.Message) { b.send(msg) }

func (b *Broadcaster) SendUnreliable(msg packet.Message) { b.send(msg) }

func (b *Broadcaster) send(msg packet.Message) {
	for _, id := range b.order {
		b.sessions[id].Send(msg)
	}
}

// Flush hands every buffered message to the writer goroutines.
func (b *Broadcaster) Flush() {
	for _, id := range b.order {
		b.sessions[id].FlushOutput()
	}
}

// Close closes every tracked session.
func (b *Broadcaster) Close() {
	for _, id := range b.order {
		b.sessions[id].Close()
	}
}
