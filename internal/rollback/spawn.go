package rollback

import (
	"go.uber.org/zap"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/geom"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/physics"
)

// SpawnPlayer gives id a player character, body and collider in both
// universes plus a transform.
func (m *Manager) SpawnPlayer(p gameplay.PlayerNumber, id ecs.EntityID, pos geom.Vec2, rot float32) {
	body := physics.NewBody()
	body.Position = pos
	body.Rotation = rot
	col := physics.Collider{Radius: m.tuning.PlayerRadius, Enabled: true}
	pc := gameplay.PlayerCharacter{Player: p}

	for _, u := range []*universe{m.current, m.validated} {
		u.players.Add(id, pc)
		u.phys.AddBody(id, body)
		u.phys.AddCollider(id, col)
	}
	m.addTransform(id, pos, rot)
}

// SpawnGlove attaches a glove with the given sign to the player owning
// playerID.
func (m *Manager) SpawnGlove(playerID, id ecs.EntityID, pos geom.Vec2, rot, sign float32) {
	body := physics.NewBody()
	body.Position = pos
	body.Rotation = rot
	col := physics.Collider{Radius: m.tuning.GloveRadius, Enabled: true}
	glove := gameplay.Glove{
		Player: m.current.players.Get(playerID).Player,
		Sign:   sign,
	}

	for _, u := range []*universe{m.current, m.validated} {
		u.gloves.Add(id, glove)
		u.phys.AddBody(id, body)
		u.phys.AddCollider(id, col)
	}
	m.addTransform(id, pos, rot)
}

// SpawnEffect attaches an effect to id. Inside a replay the effect only
// exists in the current universe and is recorded as created at the
// replayed frame; it becomes permanent once that frame is validated.
func (m *Manager) SpawnEffect(id ecs.EntityID, typ gameplay.EffectType, pos geom.Vec2) {
	effect := m.tuning.NewEffect(typ)
	if m.replaying {
		m.created.record(id, m.testedFrame)
		m.current.effects.Add(id, effect)
	} else {
		m.current.effects.Add(id, effect)
		m.validated.effects.Add(id, effect)
	}
	m.addTransform(id, pos, 0)
}

func (m *Manager) addTransform(id ecs.EntityID, pos geom.Vec2, rot float32) {
	m.world.Registry().AddComponent(id, ecs.KindTransform)
	m.transforms.Set(id, gameplay.Transform{Position: pos, Rotation: rot})
}

// DestroyEntity removes an entity created inside the current replay
// window at once. Any other entity is tombstoned and released when the
// destroying frame is validated.
func (m *Manager) DestroyEntity(id ecs.EntityID) {
	if m.created.take(id) {
		m.world.Destroy(id)
		return
	}
	if !m.world.Alive(id) {
		m.log.Warn("destroy of unknown entity", zap.Uint32("index", id.Index()))
		return
	}
	m.world.MarkDestroyed(id)
}

func (m *Manager) Transform(id ecs.EntityID) gameplay.Transform {
	return m.transforms.Value(id)
}

func (m *Manager) PlayerCharacter(id ecs.EntityID) gameplay.PlayerCharacter {
	return m.current.players.Get(id)
}

func (m *Manager) Glove(id ecs.EntityID) gameplay.Glove {
	return m.current.gloves.Get(id)
}

func (m *Manager) Effect(id ecs.EntityID) gameplay.Effect {
	return m.current.effects.Get(id)
}

func (m *Manager) Body(id ecs.EntityID) physics.Body {
	return m.current.phys.Body(id)
}

func (m *Manager) ValidatedBody(id ecs.EntityID) physics.Body {
	return m.validated.phys.Body(id)
}

func (m *Manager) ValidatedPlayerCharacter(id ecs.EntityID) gameplay.PlayerCharacter {
	return m.validated.players.Get(id)
}

// SpeculativeCount is the number of entities awaiting validation.
func (m *Manager) SpeculativeCount() int { return m.created.len() }
