package match

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/netplay/packet"
	"github.com/glovebox/server/internal/rollback"
)

// Client is the predicting side of a match. It steps its own frame
// counter at the fixed period, sends its inputs, and replays the
// speculative state whenever the renderer asks for it.
// Not safe for concurrent use.
type Client struct {
	log *zap.Logger
	gm  *GameManager
	out Sender
	now func() time.Time

	id     uuid.UUID
	name   string
	player gameplay.PlayerNumber
	frame  rollback.Frame

	startAt  int64
	started  bool
	finished bool
}

func NewClient(log *zap.Logger, gm *GameManager, out Sender, name string) *Client {
	id := uuid.New()
	return &Client{
		log:    log.With(zap.String("component", "match-client"), zap.Stringer("client", id)),
		gm:     gm,
		out:    out,
		now:    time.Now,
		id:     id,
		name:   name,
		player: gameplay.InvalidPlayer,
	}
}

// SetClock replaces the wall clock used to gate the match start.
func (c *Client) SetClock(now func() time.Time) { c.now = now }

func (c *Client) ID() uuid.UUID                 { return c.id }
func (c *Client) Player() gameplay.PlayerNumber { return c.player }
func (c *Client) Frame() rollback.Frame         { return c.frame }
func (c *Client) Started() bool                 { return c.started }
func (c *Client) Finished() bool                { return c.finished }
func (c *Client) GameManager() *GameManager     { return c.gm }

// Join asks the server for a player number.
func (c *Client) Join() {
	c.out.SendReliable(&packet.Join{ClientID: c.id, Name: c.name, StartTime: c.now().UnixMilli()})
}

// Receive handles one message from the server. It returns a
// *rollback.DesyncError when a confirmed frame disagrees with the local
// simulation.
func (c *Client) Receive(msg packet.Message) error {
	switch m := msg.(type) {
	case *packet.JoinAck:
		if m.ClientID != c.id {
			return nil
		}
		if int(m.Player) >= gameplay.MaxPlayers {
			c.log.Warn("join ack with invalid player number ignored", zap.Uint8("player", uint8(m.Player)))
			return nil
		}
		c.player = m.Player
		c.log.Info("joined", zap.Uint8("player", uint8(m.Player)))
	case *packet.SpawnPlayer:
		c.gm.SpawnPlayer(m.Player, m.Position, m.Rotation)
		c.gm.SpawnGloves(m.Player, m.Position, m.Rotation)
	case *packet.StartGame:
		c.startAt = m.StartAt
	case *packet.PlayerInput:
		if m.Player == c.player {
			return nil
		}
		writeInputs(c.gm, m)
	case *packet.ConfirmFrame:
		return c.confirm(m)
	case *packet.WinGame:
		if !c.finished {
			c.finished = true
			c.gm.WinGame(m.Winner)
			c.log.Info("match over", zap.Uint8("winner", uint8(m.Winner)))
		}
	default:
		c.log.Debug("unexpected message from server", zap.Uint8("opcode", msg.Opcode()))
	}
	return nil
}

func (c *Client) confirm(m *packet.ConfirmFrame) error {
	rb := c.gm.Rollback()
	if m.Frame < rb.LastValidatedFrame() {
		c.log.Warn("confirmation older than last validated frame dropped",
			zap.Uint32("frame", m.Frame),
			zap.Uint32("validated", rb.LastValidatedFrame()))
		return nil
	}
	for p := 0; p < gameplay.MaxPlayers; p++ {
		if last := rb.LastReceivedFrame(gameplay.PlayerNumber(p)); last < m.Frame {
			c.log.Warn("confirmation ahead of received inputs dropped",
				zap.Uint32("frame", m.Frame),
				zap.Int("player", p),
				zap.Uint32("last_received", last))
			return nil
		}
	}
	return rb.ConfirmFrame(m.Frame, m.Checksums)
}

// FixedUpdate runs once per fixed period with the local input. Before
// the scheduled start and after the match ended it does nothing.
func (c *Client) FixedUpdate(in gameplay.Input) {
	if !c.started {
		if c.startAt == 0 || c.now().UnixMilli() <= c.startAt {
			return
		}
		c.started = true
		c.log.Info("match started", zap.Int64("start_at", c.startAt))
	}
	if c.finished {
		return
	}
	if c.player == gameplay.InvalidPlayer {
		c.log.Warn("no player number assigned yet")
		return
	}

	c.gm.SetPlayerInput(c.player, in, c.frame)
	n := min(c.gm.Tuning().MaxInputs, int(c.frame)+1)
	inputs := make([]gameplay.Input, n)
	for i := range inputs {
		inputs[i] = c.gm.Rollback().InputAt(c.player, c.frame-rollback.Frame(i))
	}
	c.out.SendUnreliable(&packet.PlayerInput{Player: c.player, Frame: c.frame, Inputs: inputs})

	c.frame++
	c.gm.Rollback().StartNewFrame(c.frame)
}

// Render brings the speculative state up to the newest frame.
func (c *Client) Render() {
	if !c.started {
		return
	}
	c.gm.Rollback().SimulateToCurrentFrame()
}
