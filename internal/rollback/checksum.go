package rollback

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/physics"
)

// Checksum folds the validated state of player p and its two gloves into
// a PhysicsState. Unspawned entities contribute nothing.
func (m *Manager) Checksum(p gameplay.PlayerNumber) PhysicsState {
	reg := m.world.Registry()
	gloves := m.host.GloveEntities(p)
	var state PhysicsState
	for _, id := range [3]ecs.EntityID{m.host.PlayerEntity(p), gloves[0], gloves[1]} {
		if !reg.HasComponent(id, ecs.KindBody) {
			continue
		}
		state += bodyChecksum(m.validated.phys.Body(id))
	}
	return state
}

func bodyChecksum(b physics.Body) PhysicsState {
	return math.Float32bits(b.Position.X) +
		math.Float32bits(b.Position.Y) +
		math.Float32bits(b.Velocity.X) +
		math.Float32bits(b.Velocity.Y) +
		math.Float32bits(b.Rotation) +
		math.Float32bits(b.AngularVelocity)
}

// StateDigest hashes the validated universe: every live non-effect entity's
// id, mask and component values in index order. Two peers with equal
// digests hold bit-identical validated state.
func (m *Manager) StateDigest() [32]byte {
	h, _ := blake2b.New256(nil)
	reg := m.world.Registry()
	u := m.validated
	buf := make([]byte, 0, 128)
	buf = binary.LittleEndian.AppendUint32(buf, m.lastValidated)
	h.Write(buf)

	reg.Each(0, ecs.KindDestroyed|ecs.KindEffect, func(id ecs.EntityID) {
		mask := reg.Mask(id)
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint64(buf, uint64(id))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(mask))
		if mask.Contains(ecs.KindBody) {
			b := u.phys.Body(id)
			buf = appendFloats(buf, b.Mass, b.Position.X, b.Position.Y, b.Velocity.X, b.Velocity.Y, b.Rotation, b.AngularVelocity)
			buf = append(buf, byte(b.Type))
		}
		if mask.Contains(ecs.KindCollider) {
			c := u.phys.Collider(id)
			buf = appendFloats(buf, c.Radius)
			buf = append(buf, boolByte(c.IsTrigger), boolByte(c.Enabled))
		}
		if mask.Contains(ecs.KindPlayerCharacter) {
			pc := u.players.Get(id)
			buf = append(buf, byte(pc.Player), byte(pc.Input))
			buf = appendFloats(buf, pc.DamagePercent, pc.InvincibilityTime, pc.KnockbackTime)
		}
		if mask.Contains(ecs.KindGlove) {
			g := u.gloves.Get(id)
			buf = append(buf, byte(g.Player), boolByte(g.IsPunching), boolByte(g.IsRecovering), boolByte(g.HasLaunched))
			buf = appendFloats(buf, g.Sign, g.PunchingTime, g.RecoveryTime, g.ReturningFrom.X, g.ReturningFrom.Y)
		}
		h.Write(buf)
	})

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func appendFloats(buf []byte, fs ...float32) []byte {
	for _, f := range fs {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
