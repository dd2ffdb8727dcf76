package match

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/netplay"
	"github.com/glovebox/server/internal/netplay/packet"
)

// Simulation runs a server and both clients in one process, connected by
// simulated links and driven by a virtual clock. Each side owns its own
// world, so the clients only agree with the server if the simulation is
// deterministic.
type Simulation struct {
	Server  *Server
	Clients [gameplay.MaxPlayers]*Client

	up   [gameplay.MaxPlayers]*netplay.SimLink // client -> server
	down [gameplay.MaxPlayers]*netplay.SimLink // server -> client
	now  time.Time
	step time.Duration
}

// NewSimulation connects a fresh server and two clients. Every link is
// shaped by link, each with its own seed derived from link.Seed. The
// clients have joined once the first few ticks delivered their Join
// messages.
func NewSimulation(log *zap.Logger, tuning *gameplay.Tuning, rules gameplay.HitRules, link netplay.LinkConfig, startDelay time.Duration) *Simulation {
	s := &Simulation{
		now:  time.Unix(1_700_000_000, 0),
		step: time.Duration(float64(tuning.FixedPeriod) * float64(time.Second)),
	}
	clock := func() time.Time { return s.now }

	var fanout netplay.Fanout
	for p := range s.down {
		cfg := link
		cfg.Seed = link.Seed + int64(2*p)
		s.down[p] = netplay.NewSimLink(cfg)
		cfg.Seed++
		s.up[p] = netplay.NewSimLink(cfg)
		fanout = append(fanout, s.down[p])
	}

	s.Server = NewServer(log, NewGameManager(log.Named("server"), tuning, rules), fanout, startDelay)
	s.Server.SetClock(clock)
	for p := range s.Clients {
		clog := log.Named(fmt.Sprintf("client%d", p))
		c := NewClient(clog, NewGameManager(clog, tuning, rules), s.up[p], fmt.Sprintf("player%d", p+1))
		c.SetClock(clock)
		s.Clients[p] = c
	}
	for _, c := range s.Clients {
		c.Join()
	}
	return s
}

// Now returns the virtual wall clock.
func (s *Simulation) Now() time.Time { return s.now }

// Tick advances the clock by one fixed period, delivers every due message
// and steps both clients. inputs is indexed by player number.
func (s *Simulation) Tick(inputs [gameplay.MaxPlayers]gameplay.Input) error {
	if err := s.advance(); err != nil {
		return err
	}
	for _, c := range s.Clients {
		var in gameplay.Input
		if p := c.Player(); int(p) < gameplay.MaxPlayers {
			in = inputs[p]
		}
		c.FixedUpdate(in)
		c.Render()
	}
	return nil
}

// Drain advances the clock for d without stepping the clients, so that
// messages in flight arrive.
func (s *Simulation) Drain(d time.Duration) error {
	for end := s.now.Add(d); s.now.Before(end); {
		if err := s.advance(); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect drops client p from the server.
func (s *Simulation) Disconnect(p gameplay.PlayerNumber) {
	s.Server.Disconnect(s.Clients[p].ID())
}

// Done reports whether the server and both clients saw the match end.
func (s *Simulation) Done() bool {
	for _, c := range s.Clients {
		if !c.Finished() {
			return false
		}
	}
	return s.Server.Finished()
}

// LinkStats sums sent and lost messages over every link.
func (s *Simulation) LinkStats() (sent, lost int) {
	for p := range s.up {
		for _, l := range [2]*netplay.SimLink{s.up[p], s.down[p]} {
			ls, ll := l.Stats()
			sent += ls
			lost += ll
		}
	}
	return sent, lost
}

func (s *Simulation) advance() error {
	s.now = s.now.Add(s.step)
	for p := range s.up {
		s.up[p].Advance(s.step)
		s.down[p].Advance(s.step)
	}
	for p := range s.up {
		if err := deliver(s.up[p], s.Server.Receive); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	for p, c := range s.Clients {
		if err := deliver(s.down[p], c.Receive); err != nil {
			return fmt.Errorf("client %d: %w", p, err)
		}
	}
	return nil
}

func deliver(l *netplay.SimLink, receive func(packet.Message) error) error {
	msgs, err := l.Poll()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := receive(m); err != nil {
			return err
		}
	}
	return nil
}
