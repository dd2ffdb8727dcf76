// Package rollback keeps a speculative world in step with an authoritative
// one. Two universes share every entity id: "current" is rebuilt from
// "validated" and replayed up to the newest frame whenever inputs change,
// and "validated" only advances once every player's input for a frame is
// known.
package rollback

import (
	"time"

	"go.uber.org/zap"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/event"
	"github.com/glovebox/server/internal/core/geom"
	coresys "github.com/glovebox/server/internal/core/system"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/physics"
)

// Host owns the player/glove mapping and allocates effect entities.
type Host interface {
	gameplay.Roster
	SpawnEffect(typ gameplay.EffectType, pos geom.Vec2) ecs.EntityID
}

type universe struct {
	phys    *physics.Engine
	players *gameplay.PlayerSystem
	gloves  *gameplay.GloveSystem
	effects *gameplay.EffectSystem
}

func newUniverse(reg *ecs.Registry, t *gameplay.Tuning, host Host, d gameplay.Destroyer) *universe {
	u := &universe{phys: physics.NewEngine(reg)}
	u.phys.SetFixedStep(t.FixedPeriod)
	u.gloves = gameplay.NewGloveSystem(reg, t, host, u.phys)
	u.players = gameplay.NewPlayerSystem(reg, t, host, u.phys, u.gloves)
	u.effects = gameplay.NewEffectSystem(reg, t, d)
	return u
}

func (u *universe) copyFrom(o *universe) {
	u.phys.CopyAllFrom(o.phys)
	u.players.CopyAllFrom(o.players)
	u.gloves.CopyAllFrom(o.gloves)
	u.effects.CopyAllFrom(o.effects)
}

func (u *universe) register(w *ecs.World) {
	w.RegisterStore(u.phys.Bodies())
	w.RegisterStore(u.phys.Colliders())
	w.RegisterStore(u.players.Store())
	w.RegisterStore(u.gloves.Store())
	w.RegisterStore(u.effects.Store())
}

// Manager is not safe for concurrent use. All calls must come from the
// simulation goroutine.
type Manager struct {
	log    *zap.Logger
	tuning *gameplay.Tuning
	host   Host
	world  *ecs.World
	rules  gameplay.HitRules
	bus    *event.Bus

	transforms *ecs.Store[gameplay.Transform]
	current    *universe
	validated  *universe
	runner     *coresys.Runner
	step       time.Duration

	inputs       [gameplay.MaxPlayers]*inputRing
	lastReceived [gameplay.MaxPlayers]Frame

	currentFrame  Frame
	lastValidated Frame
	testedFrame   Frame
	created       ledger
	replaying     bool
	validating    bool
}

// NewManager wires both universes to world. rules may be nil, in which
// case the standard knockback formula applies.
func NewManager(log *zap.Logger, tuning *gameplay.Tuning, world *ecs.World, host Host, rules gameplay.HitRules) *Manager {
	if rules == nil {
		rules = gameplay.StandardRules{Tuning: tuning}
	}
	m := &Manager{
		log:        log.With(zap.String("component", "rollback")),
		tuning:     tuning,
		host:       host,
		world:      world,
		rules:      rules,
		transforms: ecs.NewStore[gameplay.Transform](),
		runner:     coresys.NewRunner(),
		step:       time.Duration(float64(tuning.FixedPeriod) * float64(time.Second)),
	}
	reg := world.Registry()
	m.current = newUniverse(reg, tuning, host, m)
	m.validated = newUniverse(reg, tuning, host, m)
	m.current.register(world)
	m.validated.register(world)
	world.RegisterStore(m.transforms)

	m.current.phys.RegisterTriggerListener(m)
	m.runner.Register(m.current.players)
	m.runner.Register(m.current.gloves)
	m.runner.Register(m.current.phys)
	m.runner.Register(m.current.effects)

	for p := range m.inputs {
		m.inputs[p] = newInputRing(tuning.InputBufferSize)
	}
	return m
}

// SetEventBus makes the manager publish hit and clash events observed
// while validating frames.
func (m *Manager) SetEventBus(bus *event.Bus) { m.bus = bus }

func (m *Manager) CurrentFrame() Frame       { return m.currentFrame }
func (m *Manager) LastValidatedFrame() Frame { return m.lastValidated }
func (m *Manager) TestedFrame() Frame        { return m.testedFrame }

// Resimulating reports whether a replay is running. Hosts use it to
// suppress one-shot cues that would otherwise fire on every replay.
func (m *Manager) Resimulating() bool { return m.replaying }

func (m *Manager) LastReceivedFrame(p gameplay.PlayerNumber) Frame {
	if !m.knownPlayer(p) {
		return 0
	}
	return m.lastReceived[p]
}

// knownPlayer logs and reports false for player numbers outside the match.
func (m *Manager) knownPlayer(p gameplay.PlayerNumber) bool {
	if int(p) < gameplay.MaxPlayers {
		return true
	}
	m.log.Warn("unknown player number", zap.Uint8("player", uint8(p)))
	return false
}

// InputAt returns the input of player p at frame, reading the oldest
// buffered input for frames beyond the buffer depth.
func (m *Manager) InputAt(p gameplay.PlayerNumber, frame Frame) gameplay.Input {
	if !m.knownPlayer(p) {
		return 0
	}
	if frame > m.currentFrame {
		frame = m.currentFrame
	}
	return m.inputs[p].at(m.currentFrame - frame)
}

// InputHistory copies the last n inputs of player p, newest first.
func (m *Manager) InputHistory(p gameplay.PlayerNumber, dst []gameplay.Input, n int) []gameplay.Input {
	if !m.knownPlayer(p) {
		return dst[:0]
	}
	return m.inputs[p].history(dst, n)
}

// SetPlayerInput records the input of player p at frame. A frame newer
// than the head advances the head first. The newest input of a player is
// repeated forward up to the head, predicting that buttons stay held.
func (m *Manager) SetPlayerInput(p gameplay.PlayerNumber, in gameplay.Input, frame Frame) {
	if !m.knownPlayer(p) {
		return
	}
	if frame > m.currentFrame {
		m.StartNewFrame(frame)
	}
	offset := m.currentFrame - frame
	ring := m.inputs[p]
	if !ring.set(offset, in) {
		m.log.Debug("input older than buffer dropped",
			zap.Uint8("player", uint8(p)),
			zap.Uint32("frame", frame),
			zap.Uint32("head", m.currentFrame))
		return
	}
	if frame > m.lastReceived[p] {
		m.lastReceived[p] = frame
		ring.fill(offset, in)
	}
}

// StartNewFrame moves the head to newFrame. Older frames are a no-op.
func (m *Manager) StartNewFrame(newFrame Frame) {
	if newFrame <= m.currentFrame {
		return
	}
	delta := newFrame - m.currentFrame
	for _, ring := range m.inputs {
		ring.shift(delta)
	}
	m.currentFrame = newFrame
}

// SimulateToCurrentFrame rebuilds the current universe from the validated
// one and replays every frame after the last validated frame up to the
// head, then refreshes the render transforms.
func (m *Manager) SimulateToCurrentFrame() {
	m.rewind()
	m.replay(m.lastValidated+1, m.currentFrame)
	m.syncTransforms()
}

// ValidateFrame advances the validated universe to frame. It fails when
// some player's input for frame has not arrived. Frames at or before the
// last validated frame are ignored.
func (m *Manager) ValidateFrame(frame Frame) error {
	if frame <= m.lastValidated {
		return nil
	}
	for p := range m.lastReceived {
		if m.lastReceived[p] < frame {
			return &ValidationError{
				Frame:        frame,
				Player:       gameplay.PlayerNumber(p),
				LastReceived: m.lastReceived[p],
			}
		}
	}
	if m.currentFrame < frame {
		m.StartNewFrame(frame)
	}

	m.rewind()
	m.validating = true
	m.replay(m.lastValidated+1, frame)
	m.validating = false

	for _, id := range m.world.Sweep() {
		m.log.Debug("entity released", zap.Uint32("index", id.Index()), zap.Uint32("frame", frame))
	}
	m.validated.copyFrom(m.current)
	m.lastValidated = frame
	m.created.clear()
	return nil
}

// ConfirmFrame validates frame and compares each player's checksum with
// the authoritative one. Confirmations older than the last validated frame
// carry nothing new and are ignored.
func (m *Manager) ConfirmFrame(frame Frame, server [gameplay.MaxPlayers]PhysicsState) error {
	if frame < m.lastValidated {
		return nil
	}
	if err := m.ValidateFrame(frame); err != nil {
		return err
	}
	for p := range server {
		player := gameplay.PlayerNumber(p)
		local := m.Checksum(player)
		if local != server[p] {
			return &DesyncError{
				Frame:  frame,
				Player: player,
				Server: server[p],
				Local:  local,
				Digest: m.StateDigest(),
			}
		}
	}
	return nil
}

// Checksums returns the validated checksum of every player.
func (m *Manager) Checksums() [gameplay.MaxPlayers]PhysicsState {
	var out [gameplay.MaxPlayers]PhysicsState
	for p := range out {
		out[p] = m.Checksum(gameplay.PlayerNumber(p))
	}
	return out
}

// rewind drops speculative entities, revives tombstoned ones and resets
// the current universe to the validated one.
func (m *Manager) rewind() {
	m.created.after(m.lastValidated, m.world.Destroy)
	m.created.clear()
	m.world.ClearDestroyed()
	m.current.copyFrom(m.validated)
}

func (m *Manager) replay(from, to Frame) {
	m.replaying = true
	defer func() { m.replaying = false }()

	reg := m.world.Registry()
	for frame := from; frame <= to && frame >= from; frame++ {
		m.testedFrame = frame
		for p := range m.inputs {
			player := gameplay.PlayerNumber(p)
			id := m.host.PlayerEntity(player)
			if !reg.HasComponent(id, ecs.KindPlayerCharacter) {
				m.log.Warn("no entity for player", zap.Uint8("player", uint8(player)), zap.Uint32("frame", frame))
				continue
			}
			m.current.players.Ref(id).Input = m.InputAt(player, frame)
		}
		m.runner.Tick(m.step)
	}
}

func (m *Manager) syncTransforms() {
	m.world.Registry().Each(ecs.KindBody|ecs.KindTransform, ecs.KindDestroyed, func(id ecs.EntityID) {
		b := m.current.phys.Body(id)
		m.transforms.Set(id, gameplay.Transform{Position: b.Position, Rotation: b.Rotation})
	})
}
