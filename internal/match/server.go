package match

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glovebox/server/internal/core/event"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/netplay/packet"
	"github.com/glovebox/server/internal/rollback"
)

// ErrMatchFull is returned when a third client tries to join.
var ErrMatchFull = errors.New("match is full")

// Sender delivers protocol messages to the other side of the match. On
// the server every send reaches all clients.
type Sender interface {
	SendReliable(msg packet.Message)
	SendUnreliable(msg packet.Message)
}

// Server is the authoritative side of a match. It never predicts: frames
// are simulated only once every player's input for them has arrived.
// Not safe for concurrent use.
type Server struct {
	log        *zap.Logger
	gm         *GameManager
	out        Sender
	bus        *event.Bus
	now        func() time.Time
	startDelay time.Duration

	clients [gameplay.MaxPlayers]uuid.UUID
	names   [gameplay.MaxPlayers]string
	joined  int

	started  bool
	finished bool
}

// NewServer creates the authoritative side of a match. Clients start
// stepping frames startDelay after the second player joined.
func NewServer(log *zap.Logger, gm *GameManager, out Sender, startDelay time.Duration) *Server {
	return &Server{
		log:        log.With(zap.String("component", "match-server")),
		gm:         gm,
		out:        out,
		now:        time.Now,
		startDelay: startDelay,
	}
}

// SetClock replaces the wall clock used to schedule the match start.
func (s *Server) SetClock(now func() time.Time) { s.now = now }

// SetEventBus publishes join, start, win and leave notifications on bus.
func (s *Server) SetEventBus(bus *event.Bus) {
	s.bus = bus
	s.gm.SetEventBus(bus)
}

func (s *Server) GameManager() *GameManager { return s.gm }
func (s *Server) Started() bool             { return s.started }
func (s *Server) Finished() bool            { return s.finished }

// Player returns the number assigned to clientID.
func (s *Server) Player(clientID uuid.UUID) (gameplay.PlayerNumber, bool) {
	for p := 0; p < s.joined; p++ {
		if s.clients[p] == clientID {
			return gameplay.PlayerNumber(p), true
		}
	}
	return gameplay.InvalidPlayer, false
}

// Receive handles one message from a client.
func (s *Server) Receive(msg packet.Message) error {
	switch m := msg.(type) {
	case *packet.Join:
		_, err := s.Join(m)
		return err
	case *packet.PlayerInput:
		return s.PlayerInput(m)
	default:
		s.log.Debug("unexpected message from client", zap.Uint8("opcode", msg.Opcode()))
		return nil
	}
}

// Join assigns the next player number to the client, spawns its
// character and announces every known player. A repeated Join only
// repeats the acknowledgement.
func (s *Server) Join(m *packet.Join) (gameplay.PlayerNumber, error) {
	if p, ok := s.Player(m.ClientID); ok {
		s.out.SendReliable(&packet.JoinAck{ClientID: m.ClientID, Player: p})
		return p, nil
	}
	if s.joined == gameplay.MaxPlayers {
		s.log.Warn("join rejected", zap.Stringer("client", m.ClientID), zap.Error(ErrMatchFull))
		return gameplay.InvalidPlayer, ErrMatchFull
	}

	p := gameplay.PlayerNumber(s.joined)
	s.clients[p] = m.ClientID
	s.names[p] = m.Name
	s.joined++

	s.log.Info("player joined",
		zap.Uint8("player", uint8(p)),
		zap.Stringer("client", m.ClientID),
		zap.String("name", m.Name),
		zap.Int64("clock_delta_ms", s.now().UnixMilli()-m.StartTime))
	s.out.SendReliable(&packet.JoinAck{ClientID: m.ClientID, Player: p})
	if s.bus != nil {
		event.Emit(s.bus, event.PlayerJoined{ClientID: m.ClientID, Player: uint8(p), Name: m.Name})
	}

	for q := 0; q < s.joined; q++ {
		player := gameplay.PlayerNumber(q)
		pos, rot := s.gm.Spawn(player)
		s.out.SendReliable(&packet.SpawnPlayer{
			ClientID: s.clients[q],
			Player:   player,
			Position: pos,
			Rotation: rot,
		})
	}

	if s.joined == gameplay.MaxPlayers {
		startAt := s.now().Add(s.startDelay).UnixMilli()
		s.started = true
		s.out.SendReliable(&packet.StartGame{StartAt: startAt})
		s.log.Info("match starting", zap.Int64("start_at", startAt))
		if s.bus != nil {
			event.Emit(s.bus, event.MatchStarted{StartAtMillis: startAt})
		}
	}
	return p, nil
}

// PlayerInput stores the input history of one player, relays it to every
// client and validates as far as all inputs allow. Each newly validated
// frame is confirmed to the clients with its checksums.
func (s *Server) PlayerInput(m *packet.PlayerInput) error {
	if !s.started || s.finished {
		return nil
	}
	if int(m.Player) >= gameplay.MaxPlayers {
		s.log.Warn("input for invalid player", zap.Uint8("player", uint8(m.Player)))
		return nil
	}
	writeInputs(s.gm, m)
	s.out.SendUnreliable(m)

	rb := s.gm.Rollback()
	frame := rb.LastReceivedFrame(0)
	for p := 1; p < gameplay.MaxPlayers; p++ {
		frame = min(frame, rb.LastReceivedFrame(gameplay.PlayerNumber(p)))
	}
	if frame <= rb.LastValidatedFrame() {
		return nil
	}
	if err := s.gm.Validate(frame); err != nil {
		return fmt.Errorf("validate frame %d: %w", frame, err)
	}
	sums := rb.Checksums()
	s.out.SendReliable(&packet.ConfirmFrame{Frame: frame, Checksums: sums})

	if winner := s.gm.CheckWinner(); winner != gameplay.InvalidPlayer {
		s.finish(frame, winner)
	}
	return nil
}

// Disconnect ends a running match without a winner when one of its
// players leaves.
func (s *Server) Disconnect(clientID uuid.UUID) {
	p, ok := s.Player(clientID)
	if !ok {
		return
	}
	s.log.Info("player left", zap.Uint8("player", uint8(p)), zap.Stringer("client", clientID))
	if s.bus != nil {
		event.Emit(s.bus, event.PlayerLeft{ClientID: clientID, Player: uint8(p)})
	}
	if !s.finished {
		s.finish(s.gm.LastValidatedFrame(), gameplay.InvalidPlayer)
	}
}

// Abort ends a running match without a winner.
func (s *Server) Abort() {
	if !s.finished {
		s.finish(s.gm.LastValidatedFrame(), gameplay.InvalidPlayer)
	}
}

func (s *Server) finish(frame rollback.Frame, winner gameplay.PlayerNumber) {
	s.finished = true
	s.gm.WinGame(winner)
	s.out.SendReliable(&packet.WinGame{Winner: winner})
	s.log.Info("match over", zap.Uint32("frame", frame), zap.Uint8("winner", uint8(winner)))
	if s.bus != nil {
		w := -1
		if winner != gameplay.InvalidPlayer {
			w = int(winner)
		}
		event.Emit(s.bus, event.MatchWon{Frame: frame, Winner: w})
	}
}

// writeInputs stores m.Inputs[i] as the input at m.Frame-i.
func writeInputs(gm *GameManager, m *packet.PlayerInput) {
	for i, in := range m.Inputs {
		if rollback.Frame(i) > m.Frame {
			break
		}
		gm.SetPlayerInput(m.Player, in, m.Frame-rollback.Frame(i))
	}
}
