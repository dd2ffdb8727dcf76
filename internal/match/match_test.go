package match

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/event"
	"github.com/glovebox/server/internal/core/geom"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/netplay"
	"github.com/glovebox/server/internal/netplay/packet"
	"github.com/glovebox/server/internal/rollback"
)

type recorder struct {
	reliable   []packet.Message
	unreliable []packet.Message
}

func (r *recorder) SendReliable(m packet.Message)   { r.reliable = append(r.reliable, m) }
func (r *recorder) SendUnreliable(m packet.Message) { r.unreliable = append(r.unreliable, m) }

func (r *recorder) last() packet.Message { return r.reliable[len(r.reliable)-1] }

func newTuning() *gameplay.Tuning {
	t := gameplay.DefaultTuning()
	return &t
}

func newServer(t *testing.T) (*Server, *recorder) {
	log := zaptest.NewLogger(t)
	out := &recorder{}
	s := NewServer(log, NewGameManager(log, newTuning(), nil), out, 100*time.Millisecond)
	s.SetClock(func() time.Time { return time.UnixMilli(10_000) })
	return s, out
}

func TestGameManagerSpawnIsIdempotent(t *testing.T) {
	gm := NewGameManager(zaptest.NewLogger(t), newTuning(), nil)
	pos, rot := gm.Spawn(1)
	assert.Equal(t, geom.V(0, 3), pos)
	assert.Equal(t, float32(180), rot)

	id := gm.PlayerEntity(1)
	gloves := gm.GloveEntities(1)
	gm.Spawn(1)
	assert.Equal(t, id, gm.PlayerEntity(1))
	assert.Equal(t, gloves, gm.GloveEntities(1))
	assert.NotEqual(t, ecs.InvalidEntity, gloves[0])
	assert.NotEqual(t, gloves[0], gloves[1])

	assert.Equal(t, ecs.InvalidEntity, gm.PlayerEntity(gameplay.InvalidPlayer))
	assert.Equal(t, ecs.InvalidEntity, gm.SpawnPlayer(gameplay.InvalidPlayer, geom.Zero, 0))
}

func TestCheckWinnerNeedsExactlyOnePlayerOnStage(t *testing.T) {
	gm := NewGameManager(zaptest.NewLogger(t), newTuning(), nil)
	gm.Spawn(0)
	assert.Equal(t, gameplay.InvalidPlayer, gm.CheckWinner(), "missing player")

	gm.Spawn(1)
	assert.Equal(t, gameplay.InvalidPlayer, gm.CheckWinner(), "both standing")

	for f := rollback.Frame(1); f <= 150; f++ {
		gm.SetPlayerInput(0, gameplay.InputDown, f)
		gm.SetPlayerInput(1, 0, f)
	}
	require.NoError(t, gm.Validate(150))
	assert.Equal(t, gameplay.PlayerNumber(1), gm.CheckWinner(), "player 0 backed off the stage")
}

func TestServerAssignsPlayersAndStarts(t *testing.T) {
	s, out := newServer(t)
	bus := event.NewBus()
	var joined []event.PlayerJoined
	var started []event.MatchStarted
	event.Subscribe(bus, func(e event.PlayerJoined) { joined = append(joined, e) })
	event.Subscribe(bus, func(e event.MatchStarted) { started = append(started, e) })
	s.SetEventBus(bus)

	a, b := uuid.New(), uuid.New()
	p, err := s.Join(&packet.Join{ClientID: a, Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, gameplay.PlayerNumber(0), p)
	assert.False(t, s.Started())
	require.Len(t, out.reliable, 2)
	assert.Equal(t, &packet.JoinAck{ClientID: a, Player: 0}, out.reliable[0])

	p, err = s.Join(&packet.Join{ClientID: a, Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, gameplay.PlayerNumber(0), p, "repeated join keeps its number")

	p, err = s.Join(&packet.Join{ClientID: b, Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, gameplay.PlayerNumber(1), p)
	assert.True(t, s.Started())
	assert.Equal(t, &packet.StartGame{StartAt: 10_100}, out.last())

	var spawns []*packet.SpawnPlayer
	for _, m := range out.reliable {
		if sp, ok := m.(*packet.SpawnPlayer); ok {
			spawns = append(spawns, sp)
		}
	}
	require.Len(t, spawns, 3, "first join announces one player, second join both")
	assert.Equal(t, b, spawns[2].ClientID)
	assert.Equal(t, geom.V(0, 3), spawns[2].Position)

	_, err = s.Join(&packet.Join{ClientID: uuid.New()})
	assert.ErrorIs(t, err, ErrMatchFull)

	bus.Flush()
	assert.Len(t, joined, 2)
	require.Len(t, started, 1)
	assert.Equal(t, int64(10_100), started[0].StartAtMillis)
}

func TestServerIgnoresInputsBeforeStart(t *testing.T) {
	s, out := newServer(t)
	s.Join(&packet.Join{ClientID: uuid.New()})
	require.NoError(t, s.PlayerInput(&packet.PlayerInput{Player: 0, Frame: 3, Inputs: []gameplay.Input{1, 1, 1, 1}}))
	assert.Empty(t, out.unreliable)
	assert.Zero(t, s.GameManager().Rollback().LastReceivedFrame(0))
}

func TestServerValidatesWhenBothInputsArrive(t *testing.T) {
	s, out := newServer(t)
	s.Join(&packet.Join{ClientID: uuid.New()})
	s.Join(&packet.Join{ClientID: uuid.New()})
	sent := len(out.reliable)

	require.NoError(t, s.PlayerInput(&packet.PlayerInput{Player: 0, Frame: 4, Inputs: make([]gameplay.Input, 5)}))
	assert.Len(t, out.unreliable, 1, "inputs are relayed")
	assert.Len(t, out.reliable, sent, "nothing to confirm with one player")

	require.NoError(t, s.PlayerInput(&packet.PlayerInput{Player: 1, Frame: 2, Inputs: make([]gameplay.Input, 3)}))
	confirm, ok := out.last().(*packet.ConfirmFrame)
	require.True(t, ok)
	assert.Equal(t, uint32(2), confirm.Frame)
	assert.Equal(t, s.GameManager().Rollback().Checksums(), confirm.Checksums)

	require.NoError(t, s.PlayerInput(&packet.PlayerInput{Player: 1, Frame: 2, Inputs: make([]gameplay.Input, 3)}))
	assert.Equal(t, confirm, out.last(), "no new confirmation without progress")
}

func TestServerDisconnectEndsMatchWithoutWinner(t *testing.T) {
	s, out := newServer(t)
	a := uuid.New()
	s.Join(&packet.Join{ClientID: a})
	s.Join(&packet.Join{ClientID: uuid.New()})

	s.Disconnect(uuid.New())
	assert.False(t, s.Finished(), "unknown clients are ignored")

	s.Disconnect(a)
	assert.True(t, s.Finished())
	assert.Equal(t, &packet.WinGame{Winner: gameplay.InvalidPlayer}, out.last())
	assert.Equal(t, gameplay.InvalidPlayer, s.GameManager().Winner())

	n := len(out.reliable)
	require.NoError(t, s.PlayerInput(&packet.PlayerInput{Player: 0, Frame: 9, Inputs: make([]gameplay.Input, 10)}))
	assert.Len(t, out.reliable, n, "finished matches ignore inputs")
}

func TestServerAbortSendsResultOnce(t *testing.T) {
	s, out := newServer(t)
	s.Join(&packet.Join{ClientID: uuid.New()})

	s.Abort()
	assert.True(t, s.Finished())
	assert.Equal(t, &packet.WinGame{Winner: gameplay.InvalidPlayer}, out.last())

	n := len(out.reliable)
	s.Abort()
	assert.Len(t, out.reliable, n)
}

func joinedClient(t *testing.T) (*Client, *recorder, *time.Time) {
	out := &recorder{}
	c := NewClient(zaptest.NewLogger(t), NewGameManager(zaptest.NewLogger(t), newTuning(), nil), out, "me")
	now := time.UnixMilli(50_000)
	c.SetClock(func() time.Time { return now })
	c.Join()

	require.NoError(t, c.Receive(&packet.JoinAck{ClientID: uuid.New(), Player: 1}))
	assert.Equal(t, gameplay.InvalidPlayer, c.Player(), "acks for other clients are ignored")
	require.NoError(t, c.Receive(&packet.JoinAck{ClientID: c.ID(), Player: 0}))
	for p := gameplay.PlayerNumber(0); p < gameplay.MaxPlayers; p++ {
		pos, rot := c.GameManager().Tuning().SpawnPoint(p)
		require.NoError(t, c.Receive(&packet.SpawnPlayer{Player: p, Position: pos, Rotation: rot}))
	}
	require.NoError(t, c.Receive(&packet.StartGame{StartAt: 50_100}))
	return c, out, &now
}

func TestClientWaitsForStartTime(t *testing.T) {
	c, out, now := joinedClient(t)
	join, ok := out.reliable[0].(*packet.Join)
	require.True(t, ok)
	assert.Equal(t, c.ID(), join.ClientID)
	assert.Equal(t, int64(50_000), join.StartTime)

	c.FixedUpdate(gameplay.InputUp)
	assert.False(t, c.Started())
	assert.Empty(t, out.unreliable)

	*now = now.Add(101 * time.Millisecond)
	c.FixedUpdate(gameplay.InputUp)
	c.FixedUpdate(gameplay.InputLeft)
	assert.True(t, c.Started())
	assert.Equal(t, rollback.Frame(2), c.Frame())
	require.Len(t, out.unreliable, 2)

	in := out.unreliable[1].(*packet.PlayerInput)
	assert.Equal(t, gameplay.PlayerNumber(0), in.Player)
	assert.Equal(t, uint32(1), in.Frame)
	assert.Equal(t, []gameplay.Input{gameplay.InputLeft, gameplay.InputUp}, in.Inputs)
}

func TestClientInputWindowIsBounded(t *testing.T) {
	c, out, now := joinedClient(t)
	*now = now.Add(time.Second)
	for i := 0; i < 80; i++ {
		c.FixedUpdate(0)
	}
	in := out.unreliable[len(out.unreliable)-1].(*packet.PlayerInput)
	assert.Len(t, in.Inputs, c.GameManager().Tuning().MaxInputs)
	assert.Equal(t, uint32(79), in.Frame)
}

func TestClientDropsUnusableConfirmations(t *testing.T) {
	c, _, now := joinedClient(t)
	*now = now.Add(time.Second)
	for i := 0; i < 5; i++ {
		c.FixedUpdate(0)
	}
	rb := c.GameManager().Rollback()

	require.NoError(t, c.Receive(&packet.ConfirmFrame{Frame: 3}), "remote inputs missing")
	assert.Zero(t, rb.LastValidatedFrame())

	require.NoError(t, c.Receive(&packet.PlayerInput{Player: 1, Frame: 4, Inputs: make([]gameplay.Input, 5)}))

	// Nobody pressed anything: a fresh match validated to frame 3 is the
	// authoritative answer.
	ref := NewGameManager(zaptest.NewLogger(t), newTuning(), nil)
	ref.Spawn(0)
	ref.Spawn(1)
	for p := gameplay.PlayerNumber(0); p < gameplay.MaxPlayers; p++ {
		for f := rollback.Frame(0); f <= 3; f++ {
			ref.SetPlayerInput(p, 0, f)
		}
	}
	require.NoError(t, ref.Validate(3))
	sums := ref.Rollback().Checksums()
	require.NoError(t, c.Receive(&packet.ConfirmFrame{Frame: 3, Checksums: sums}))
	assert.Equal(t, rollback.Frame(3), rb.LastValidatedFrame())

	require.NoError(t, c.Receive(&packet.ConfirmFrame{Frame: 2}), "stale confirmation")
	assert.Equal(t, rollback.Frame(3), rb.LastValidatedFrame())

	err := c.Receive(&packet.ConfirmFrame{Frame: 4, Checksums: [gameplay.MaxPlayers]uint32{1, 2}})
	var desync *rollback.DesyncError
	require.True(t, errors.As(err, &desync))
	assert.Equal(t, uint32(4), desync.Frame)
}

func TestClientWinGameMarksFinished(t *testing.T) {
	c, out, now := joinedClient(t)
	*now = now.Add(time.Second)
	c.FixedUpdate(0)
	require.NoError(t, c.Receive(&packet.WinGame{Winner: 1}))
	assert.True(t, c.Finished())
	assert.Equal(t, gameplay.PlayerNumber(1), c.GameManager().Winner())

	n := len(out.unreliable)
	c.FixedUpdate(gameplay.InputUp)
	assert.Len(t, out.unreliable, n, "finished clients stop sending")
}

func TestSimulationStaysInSync(t *testing.T) {
	tuning := newTuning()
	sim := NewSimulation(zaptest.NewLogger(t), tuning, nil,
		netplay.LinkConfig{AvgDelay: 60 * time.Millisecond, Seed: 11},
		100*time.Millisecond)

	script := []gameplay.Input{
		gameplay.InputUp, gameplay.InputUp | gameplay.InputLeft, gameplay.InputPunch,
		0, gameplay.InputRight | gameplay.InputPunch2, gameplay.InputDown, 0,
	}
	for i := 0; i < 400; i++ {
		in := [gameplay.MaxPlayers]gameplay.Input{script[(i/9)%len(script)], script[(i/7)%len(script)]}
		require.NoError(t, sim.Tick(in))
	}
	require.NoError(t, sim.Drain(time.Second))

	server := sim.Server.GameManager().Rollback()
	assert.Positive(t, server.LastValidatedFrame())
	for _, c := range sim.Clients {
		rb := c.GameManager().Rollback()
		require.Equal(t, server.LastValidatedFrame(), rb.LastValidatedFrame())
		assert.Equal(t, server.StateDigest(), rb.StateDigest())
	}
}

func TestSimulationSurvivesPacketLoss(t *testing.T) {
	sim := NewSimulation(zaptest.NewLogger(t), newTuning(), nil,
		netplay.LinkConfig{AvgDelay: 80 * time.Millisecond, Margin: 50 * time.Millisecond, PacketLoss: 0.2, Seed: 5},
		100*time.Millisecond)
	// Both spin in place, too far apart to ever touch, so the match
	// cannot end early.
	for i := 0; i < 300; i++ {
		var in [gameplay.MaxPlayers]gameplay.Input
		if i%4 < 2 {
			in[0] = gameplay.InputLeft
		}
		if i%10 < 5 {
			in[1] = gameplay.InputRight | gameplay.InputPunch
		}
		require.NoError(t, sim.Tick(in))
	}
	_, lost := sim.LinkStats()
	assert.Positive(t, lost)
	assert.Greater(t, sim.Server.GameManager().LastValidatedFrame(), rollback.Frame(200))
	for _, c := range sim.Clients {
		assert.Positive(t, c.GameManager().LastValidatedFrame())
	}
}

func TestSimulationEndsWhenAPlayerLeavesTheStage(t *testing.T) {
	sim := NewSimulation(zaptest.NewLogger(t), newTuning(), nil,
		netplay.LinkConfig{AvgDelay: 40 * time.Millisecond, Seed: 1},
		100*time.Millisecond)
	bus := event.NewBus()
	var won []event.MatchWon
	event.Subscribe(bus, func(e event.MatchWon) { won = append(won, e) })
	sim.Server.SetEventBus(bus)

	// Player 0 backs off the stage.
	for i := 0; i < 400 && !sim.Done(); i++ {
		require.NoError(t, sim.Tick([gameplay.MaxPlayers]gameplay.Input{gameplay.InputDown, 0}))
	}
	require.True(t, sim.Done())
	assert.Equal(t, gameplay.PlayerNumber(1), sim.Server.GameManager().Winner())
	for _, c := range sim.Clients {
		assert.Equal(t, gameplay.PlayerNumber(1), c.GameManager().Winner())
	}

	bus.Flush()
	require.Len(t, won, 1)
	assert.Equal(t, 1, won[0].Winner)
}

func TestSimulationDisconnect(t *testing.T) {
	sim := NewSimulation(zaptest.NewLogger(t), newTuning(), nil,
		netplay.LinkConfig{AvgDelay: 20 * time.Millisecond, Seed: 2},
		100*time.Millisecond)
	for i := 0; i < 30; i++ {
		require.NoError(t, sim.Tick([gameplay.MaxPlayers]gameplay.Input{}))
	}
	sim.Disconnect(1)
	require.NoError(t, sim.Drain(100*time.Millisecond))
	assert.True(t, sim.Done())
	for _, c := range sim.Clients {
		assert.Equal(t, gameplay.InvalidPlayer, c.GameManager().Winner())
	}
}
