package gameplay

import (
	"time"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/geom"
	coresys "github.com/glovebox/server/internal/core/system"
	"github.com/glovebox/server/internal/physics"
)

// PlayerSystem turns the stored input of each character into movement and
// punch requests. One instance exists per universe.
type PlayerSystem struct {
	reg    *ecs.Registry
	tuning *Tuning
	roster Roster
	phys   *physics.Engine
	gloves *GloveSystem
	store  *ecs.Store[PlayerCharacter]
}

func NewPlayerSystem(reg *ecs.Registry, tuning *Tuning, roster Roster, phys *physics.Engine, gloves *GloveSystem) *PlayerSystem {
	return &PlayerSystem{
		reg:    reg,
		tuning: tuning,
		roster: roster,
		phys:   phys,
		gloves: gloves,
		store:  ecs.NewStore[PlayerCharacter](),
	}
}

func (s *PlayerSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *PlayerSystem) Update(_ time.Duration) {
	s.Step(s.tuning.FixedPeriod)
}

func (s *PlayerSystem) Add(id ecs.EntityID, pc PlayerCharacter) {
	s.reg.AddComponent(id, ecs.KindPlayerCharacter)
	s.store.Add(id, pc)
}

func (s *PlayerSystem) Get(id ecs.EntityID) PlayerCharacter     { return s.store.Value(id) }
func (s *PlayerSystem) Set(id ecs.EntityID, pc PlayerCharacter) { s.store.Set(id, pc) }
func (s *PlayerSystem) Ref(id ecs.EntityID) *PlayerCharacter    { return s.store.Get(id) }

func (s *PlayerSystem) Store() *ecs.Store[PlayerCharacter] { return s.store }

func (s *PlayerSystem) CopyAllFrom(other *PlayerSystem) {
	s.store.CopyAllFrom(other.store)
}

// Step advances every spawned character by dt seconds.
func (s *PlayerSystem) Step(dt float32) {
	t := s.tuning
	for p := PlayerNumber(0); p < MaxPlayers; p++ {
		id := s.roster.PlayerEntity(p)
		if !s.reg.HasComponent(id, ecs.KindPlayerCharacter) {
			continue
		}
		pc := s.store.Get(id)
		body := s.phys.Body(id)
		in := pc.Input

		turn := float32(float32(in.axis(InputLeft, InputRight)*t.PlayerRotationalSpeed) * dt)
		body.Rotation += turn

		forward := in.axis(InputDown, InputUp)
		dir := geom.Up.Rotate(-body.Rotation)
		original := body.Velocity
		body.Velocity = body.Velocity.Add(dir.Scale(float32(forward * t.PlayerSpeed)).Scale(dt))

		if pc.KnockbackTime <= 0 && !body.Velocity.IsZero() {
			if body.Velocity.SqrLen() > float32(t.PlayerMaxSpeed*t.PlayerMaxSpeed) {
				body.Velocity = body.Velocity.Normalized().Scale(t.PlayerMaxSpeed)
			} else if !in.Has(InputUp) && !in.Has(InputDown) {
				body.Velocity = body.Velocity.Scale(1 - float32(t.PlayerFrictionLoss*dt))
			}
		}
		s.phys.SetBody(id, body)

		delta := body.Velocity.Sub(original)
		for _, g := range s.roster.GloveEntities(p) {
			if !s.reg.HasComponent(g, ecs.KindGlove) {
				continue
			}
			glove := s.gloves.store.Get(g)
			if !glove.Idle() {
				continue
			}
			gb := s.phys.BodyRef(g)
			gb.Rotation = body.Rotation
			toGlove := gb.Position.Sub(body.Position)
			gb.Position = body.Position.Add(toGlove.Rotate(-turn))
			gb.Velocity = gb.Velocity.Rotate(-turn).Add(delta)
			glove.VelFromPlayer = delta
		}

		gloves := s.roster.GloveEntities(p)
		for i, bit := range [2]Input{InputPunch, InputPunch2} {
			if !in.Has(bit) || !s.reg.HasComponent(gloves[i], ecs.KindGlove) {
				continue
			}
			if s.gloves.Get(gloves[i]).Idle() {
				s.gloves.StartPunch(gloves[i])
			}
		}

		pc.InvincibilityTime = countdown(pc.InvincibilityTime, dt)
		pc.KnockbackTime = countdown(pc.KnockbackTime, dt)
	}
}

func countdown(v, dt float32) float32 {
	if v <= 0 {
		return 0
	}
	v -= dt
	if v < 0 {
		return 0
	}
	return v
}
