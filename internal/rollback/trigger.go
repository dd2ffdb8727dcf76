package rollback

import (
	"go.uber.org/zap"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/event"
	"github.com/glovebox/server/internal/core/geom"
	"github.com/glovebox/server/internal/gameplay"
)

// OnTrigger resolves a trigger overlap reported by the current universe's
// physics engine.
func (m *Manager) OnTrigger(first, second ecs.EntityID) {
	reg := m.world.Registry()
	isPlayer := func(id ecs.EntityID) bool { return reg.HasComponent(id, ecs.KindPlayerCharacter) }
	isGlove := func(id ecs.EntityID) bool { return reg.HasComponent(id, ecs.KindGlove) }

	switch {
	case isPlayer(first) && isGlove(second):
		m.playerHit(first, second)
	case isGlove(first) && isPlayer(second):
		m.playerHit(second, first)
	case isGlove(first) && isGlove(second):
		m.gloveClash(first, second)
	}
}

// playerHit lands a launched glove on a player of the other side.
func (m *Manager) playerHit(playerID, gloveID ecs.EntityID) {
	u := m.current
	glove := u.gloves.Get(gloveID)
	victim := u.players.Get(playerID)
	if victim.Player == glove.Player || victim.InvincibilityTime > 0 || !glove.HasLaunched {
		return
	}

	hit, err := m.rules.PlayerHit(victim.DamagePercent)
	if err != nil {
		m.log.Error("hit rules failed, using standard rules", zap.Error(err))
		hit, _ = gameplay.StandardRules{Tuning: m.tuning}.PlayerHit(victim.DamagePercent)
	}

	gloveVelocity := u.phys.Body(gloveID).Velocity
	u.gloves.StartReturn(gloveID)

	pc := u.players.Ref(playerID)
	pc.InvincibilityTime = m.tuning.InvincibilityPeriod
	pc.KnockbackTime = m.tuning.KnockbackTime
	pc.DamagePercent += hit.Damage

	pb := u.phys.BodyRef(playerID)
	pb.Velocity = gloveVelocity.Normalized().Scale(hit.KnockbackMod)
	mid := midpoint(u.phys.Body(gloveID).Position, pb.Position)

	if m.validating && m.bus != nil {
		event.Emit(m.bus, event.HitLanded{
			Frame:         m.testedFrame,
			Attacker:      uint8(glove.Player),
			Victim:        uint8(victim.Player),
			DamagePercent: pc.DamagePercent,
			Glove:         gloveID,
		})
	}
	m.host.SpawnEffect(gameplay.EffectHitBig, mid)
}

// gloveClash handles two gloves meeting. Every punching glove is sent
// back; if only one side was punching, the other glove's owner is knocked
// away. Two launched punches cancel out (a parry).
func (m *Manager) gloveClash(first, second ecs.EntityID) {
	u := m.current
	g1, g2 := u.gloves.Get(first), u.gloves.Get(second)
	if g1.Player == g2.Player {
		return
	}
	b1, b2 := u.phys.Body(first), u.phys.Body(second)
	parry := g1.IsPunching && g2.IsPunching && g1.HasLaunched && g2.HasLaunched

	if g1.IsPunching {
		u.gloves.StartReturn(first)
		if !parry {
			m.knockBack(g2.Player, b1.Velocity)
		}
	}
	if g2.IsPunching {
		u.gloves.StartReturn(second)
		if !parry {
			m.knockBack(g1.Player, b2.Velocity)
		}
	}
	if parry {
		u.phys.BodyRef(first).Velocity = geom.Zero
		u.phys.BodyRef(second).Velocity = geom.Zero
	}

	if m.validating && m.bus != nil {
		event.Emit(m.bus, event.GloveClash{Frame: m.testedFrame, Parry: parry, First: first, Second: second})
	}
	m.host.SpawnEffect(gameplay.EffectHit, midpoint(b1.Position, b2.Position))
}

// knockBack pushes player p along dir and starts its knockback timer.
func (m *Manager) knockBack(p gameplay.PlayerNumber, dir geom.Vec2) {
	id := m.host.PlayerEntity(p)
	if !m.world.Registry().HasComponent(id, ecs.KindPlayerCharacter) {
		m.log.Warn("no entity for player", zap.Uint8("player", uint8(p)))
		return
	}
	m.current.phys.BodyRef(id).Velocity = dir.Normalized().Scale(m.tuning.GloveKnockbackMod)
	m.current.players.Ref(id).KnockbackTime = m.tuning.KnockbackTime
}

func midpoint(a, b geom.Vec2) geom.Vec2 {
	return a.Add(b).Div(2)
}
