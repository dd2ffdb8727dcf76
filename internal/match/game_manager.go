// Package match runs a two-player match on top of the rollback core: the
// shared GameManager owns the entity layout, Server is the authoritative
// side of the protocol and Client the predicting side.
package match

import (
	"go.uber.org/zap"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/event"
	"github.com/glovebox/server/internal/core/geom"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/rollback"
)

// GameManager maps player numbers to entities and owns the world both
// universes live in. It implements rollback.Host.
type GameManager struct {
	log      *zap.Logger
	tuning   *gameplay.Tuning
	world    *ecs.World
	rollback *rollback.Manager

	players [gameplay.MaxPlayers]ecs.EntityID
	gloves  [gameplay.MaxPlayers][2]ecs.EntityID
	winner  gameplay.PlayerNumber
}

// NewGameManager creates an empty match. rules may be nil.
func NewGameManager(log *zap.Logger, tuning *gameplay.Tuning, rules gameplay.HitRules) *GameManager {
	gm := &GameManager{
		log:    log,
		tuning: tuning,
		world:  ecs.NewWorld(),
		winner: gameplay.InvalidPlayer,
	}
	gm.rollback = rollback.NewManager(log, tuning, gm.world, gm, rules)
	return gm
}

func (gm *GameManager) Rollback() *rollback.Manager { return gm.rollback }
func (gm *GameManager) Tuning() *gameplay.Tuning    { return gm.tuning }
func (gm *GameManager) World() *ecs.World           { return gm.world }

// SetEventBus forwards validated hit and clash events to bus.
func (gm *GameManager) SetEventBus(bus *event.Bus) { gm.rollback.SetEventBus(bus) }

func (gm *GameManager) PlayerEntity(p gameplay.PlayerNumber) ecs.EntityID {
	if int(p) >= gameplay.MaxPlayers {
		return ecs.InvalidEntity
	}
	return gm.players[p]
}

func (gm *GameManager) GloveEntities(p gameplay.PlayerNumber) [2]ecs.EntityID {
	if int(p) >= gameplay.MaxPlayers {
		return [2]ecs.EntityID{}
	}
	return gm.gloves[p]
}

// SpawnEffect allocates an entity for a visual effect at pos.
func (gm *GameManager) SpawnEffect(typ gameplay.EffectType, pos geom.Vec2) ecs.EntityID {
	id := gm.world.CreateEntity()
	gm.rollback.SpawnEffect(id, typ, pos)
	return id
}

// SpawnPlayer creates the character of player p. A player that already
// exists keeps its entity.
func (gm *GameManager) SpawnPlayer(p gameplay.PlayerNumber, pos geom.Vec2, rot float32) ecs.EntityID {
	if int(p) >= gameplay.MaxPlayers {
		gm.log.Warn("spawn of invalid player", zap.Uint8("player", uint8(p)))
		return ecs.InvalidEntity
	}
	if gm.players[p] != ecs.InvalidEntity {
		return gm.players[p]
	}
	id := gm.world.CreateEntity()
	gm.players[p] = id
	gm.rollback.SpawnPlayer(p, id, pos, rot)
	gm.log.Debug("player spawned",
		zap.Uint8("player", uint8(p)),
		zap.Float32("x", pos.X),
		zap.Float32("y", pos.Y),
		zap.Float32("rotation", rot))
	return id
}

// SpawnGloves gives player p its two gloves at their rest points.
func (gm *GameManager) SpawnGloves(p gameplay.PlayerNumber, pos geom.Vec2, rot float32) {
	if int(p) >= gameplay.MaxPlayers || gm.players[p] == ecs.InvalidEntity {
		gm.log.Warn("gloves for unknown player", zap.Uint8("player", uint8(p)))
		return
	}
	if gm.gloves[p][0] != ecs.InvalidEntity {
		return
	}
	for i, sign := range [2]float32{1, -1} {
		id := gm.world.CreateEntity()
		gm.gloves[p][i] = id
		gm.rollback.SpawnGlove(gm.players[p], id, gm.tuning.GloveSpawn(pos, rot, sign), rot, sign)
	}
}

// Spawn places player p at its regular spawn point with both gloves and
// returns the spawn transform.
func (gm *GameManager) Spawn(p gameplay.PlayerNumber) (geom.Vec2, float32) {
	pos, rot := gm.tuning.SpawnPoint(p)
	gm.SpawnPlayer(p, pos, rot)
	gm.SpawnGloves(p, pos, rot)
	return pos, rot
}

// SetPlayerInput records an input. Inputs of unknown players are ignored.
func (gm *GameManager) SetPlayerInput(p gameplay.PlayerNumber, in gameplay.Input, frame rollback.Frame) {
	if int(p) >= gameplay.MaxPlayers {
		return
	}
	gm.rollback.SetPlayerInput(p, in, frame)
}

// Validate advances the validated state to frame.
func (gm *GameManager) Validate(frame rollback.Frame) error {
	return gm.rollback.ValidateFrame(frame)
}

// CheckWinner returns the only player still standing on the stage in the
// validated state, or gameplay.InvalidPlayer while the match is undecided.
func (gm *GameManager) CheckWinner() gameplay.PlayerNumber {
	winner := gameplay.InvalidPlayer
	inside := 0
	for p, id := range gm.players {
		if id == ecs.InvalidEntity {
			return gameplay.InvalidPlayer
		}
		if gm.tuning.StageContains(gm.rollback.ValidatedBody(id).Position) {
			inside++
			winner = gameplay.PlayerNumber(p)
		}
	}
	if inside != 1 {
		return gameplay.InvalidPlayer
	}
	return winner
}

// WinGame records the result and marks every player with a trophy or a
// skull. winner may be gameplay.InvalidPlayer.
func (gm *GameManager) WinGame(winner gameplay.PlayerNumber) {
	gm.winner = winner
	for p, id := range gm.players {
		if id == ecs.InvalidEntity {
			continue
		}
		typ := gameplay.EffectSkull
		if gameplay.PlayerNumber(p) == winner {
			typ = gameplay.EffectTrophy
		}
		gm.SpawnEffect(typ, gm.rollback.Body(id).Position)
	}
}

// Winner returns the recorded winner, gameplay.InvalidPlayer if none.
func (gm *GameManager) Winner() gameplay.PlayerNumber { return gm.winner }

func (gm *GameManager) CurrentFrame() rollback.Frame { return gm.rollback.CurrentFrame() }
func (gm *GameManager) LastValidatedFrame() rollback.Frame {
	return gm.rollback.LastValidatedFrame()
}
