package netplay

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/glovebox/server/internal/netplay/packet"
)

// LinkConfig shapes a simulated link.
type LinkConfig struct {
	AvgDelay   time.Duration
	Margin     time.Duration // delay is uniform in AvgDelay±Margin
	PacketLoss float64       // probability of dropping an unreliable message
	Seed       int64
}

type delivery struct {
	due     time.Duration
	seq     uint64
	payload []byte
}

// SimLink is a one-way in-process link that delays and loses messages
// like a real network would. Messages are encoded on Send and decoded on
// Poll. Reliable messages are never lost and arrive in send order.
// Time only moves through Advance, so a seeded link replays exactly.
// Not safe for concurrent use.
type SimLink struct {
	cfg          LinkConfig
	rng          *rand.Rand
	now          time.Duration
	seq          uint64
	lastReliable time.Duration
	queue        []delivery
	sent, lost   int
}

func NewSimLink(cfg LinkConfig) *SimLink {
	return &SimLink{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

func (l *SimLink) delay() time.Duration {
	d := l.cfg.AvgDelay
	if l.cfg.Margin > 0 {
		d += time.Duration((l.rng.Float64()*2 - 1) * float64(l.cfg.Margin))
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Send queues msg for delivery after a random delay.
func (l *SimLink) Send(msg packet.Message, reliable bool) {
	l.sent++
	if !reliable && l.cfg.PacketLoss > 0 && l.rng.Float64() < l.cfg.PacketLoss {
		l.lost++
		return
	}
	due := l.now + l.delay()
	if reliable {
		if due < l.lastReliable {
			due = l.lastReliable
		}
		l.lastReliable = due
	}
	l.seq++
	d := delivery{due: due, seq: l.seq, payload: packet.Encode(msg)}
	i := sort.Search(len(l.queue), func(i int) bool {
		q := l.queue[i]
		return q.due > d.due || (q.due == d.due && q.seq > d.seq)
	})
	l.queue = append(l.queue, delivery{})
	copy(l.queue[i+1:], l.queue[i:])
	l.queue[i] = d
}

// Advance moves the link clock forward.
func (l *SimLink) Advance(dt time.Duration) {
	l.now += dt
}

// Poll decodes and removes every message that is due.
func (l *SimLink) Poll() ([]packet.Message, error) {
	n := 0
	for n < len(l.queue) && l.queue[n].due <= l.now {
		n++
	}
	if n == 0 {
		return nil, nil
	}
	due := make([]delivery, n)
	copy(due, l.queue)
	l.queue = append(l.queue[:0], l.queue[n:]...)

	out := make([]packet.Message, 0, n)
	for _, d := range due {
		msg, err := packet.Decode(d.payload)
		if err != nil {
			return out, fmt.Errorf("simlink: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// Pending returns the number of messages in flight.
func (l *SimLink) Pending() int { return len(l.queue) }

// Stats returns how many messages were sent and how many of them were lost.
func (l *SimLink) Stats() (sent, lost int) { return l.sent, l.lost }

func (l *SimLink) SendReliable(msg packet.Message)   { l.Send(msg, true) }
func (l *SimLink) SendUnreliable(msg packet.Message) { l.Send(msg, false) }

// Fanout sends every message on each of its links.
type Fanout []*SimLink

func (f Fanout) SendReliable(msg packet.Message) {
	for _, l := range f {
		l.Send(msg, true)
	}
}

func (f Fanout) SendUnreliable(msg packet.Message) {
	for _, l := range f {
		l.Send(msg, false)
	}
}
