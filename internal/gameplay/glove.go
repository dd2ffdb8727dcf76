package gameplay

import (
	"time"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/geom"
	coresys "github.com/glovebox/server/internal/core/system"
	"github.com/glovebox/server/internal/physics"
)

// GloveSystem drives the glove state machine:
//
//	Idle --StartPunch--> Windup --timer--> Launched --timer or hit--> Recovering --timer--> Idle
//
// While idle a glove seeks its ideal point beside the owner, constrained to
// a ring and an angular sector around the owner's facing.
type GloveSystem struct {
	reg    *ecs.Registry
	tuning *Tuning
	roster Roster
	phys   *physics.Engine
	store  *ecs.Store[Glove]
}

func NewGloveSystem(reg *ecs.Registry, tuning *Tuning, roster Roster, phys *physics.Engine) *GloveSystem {
	return &GloveSystem{
		reg:    reg,
		tuning: tuning,
		roster: roster,
		phys:   phys,
		store:  ecs.NewStore[Glove](),
	}
}

func (s *GloveSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *GloveSystem) Update(_ time.Duration) {
	s.Step(s.tuning.FixedPeriod)
}

func (s *GloveSystem) Add(id ecs.EntityID, g Glove) {
	s.reg.AddComponent(id, ecs.KindGlove)
	s.store.Add(id, g)
}

func (s *GloveSystem) Get(id ecs.EntityID) Glove    { return s.store.Value(id) }
func (s *GloveSystem) Set(id ecs.EntityID, g Glove) { s.store.Set(id, g) }

func (s *GloveSystem) Store() *ecs.Store[Glove] { return s.store }

func (s *GloveSystem) CopyAllFrom(other *GloveSystem) {
	s.store.CopyAllFrom(other.store)
}

// StartPunch moves an idle glove into windup. Its collider turns into a
// trigger so it reports hits instead of bouncing.
func (s *GloveSystem) StartPunch(id ecs.EntityID) {
	g := s.store.Get(id)
	g.IsPunching = true
	g.PunchingTime = s.tuning.PunchWindupTime

	s.phys.ColliderRef(id).IsTrigger = true
}

// StartReturn ends a punch: the glove stops, its collider is switched off,
// and it starts interpolating back from where it is now.
func (s *GloveSystem) StartReturn(id ecs.EntityID) {
	g := s.store.Get(id)
	g.IsRecovering = true
	g.RecoveryTime = s.tuning.GloveRecoveryTime

	col := s.phys.ColliderRef(id)
	col.IsTrigger = false
	col.Enabled = false

	body := s.phys.BodyRef(id)
	body.Velocity = geom.Zero
	g.ReturningFrom = body.Position
}

// StartIdle re-enables the glove's solid collider and clears every punch flag.
func (s *GloveSystem) StartIdle(id ecs.EntityID) {
	g := s.store.Get(id)
	g.IsPunching = false
	g.HasLaunched = false
	g.IsRecovering = false

	col := s.phys.ColliderRef(id)
	col.IsTrigger = false
	col.Enabled = true
}

func (s *GloveSystem) Step(dt float32) {
	t := s.tuning
	for p := PlayerNumber(0); p < MaxPlayers; p++ {
		playerID := s.roster.PlayerEntity(p)
		if !s.reg.HasComponent(playerID, ecs.KindBody) {
			continue
		}
		pb := s.phys.Body(playerID)
		relativeUp := geom.Up.Rotate(-pb.Rotation)

		for _, id := range s.roster.GloveEntities(p) {
			if !s.reg.HasComponent(id, ecs.KindGlove|ecs.KindBody) {
				continue
			}
			g := s.store.Get(id)
			gb := s.phys.BodyRef(id)
			goal := pb.Position.Add(relativeUp.Scale(t.GloveIdealDist).Rotate(float32(t.GloveIdealAngle * g.Sign)))

			if g.PunchingTime >= 0 {
				g.PunchingTime -= dt
			}
			if g.RecoveryTime >= 0 {
				g.RecoveryTime -= dt
			}

			switch {
			case g.IsPunching && g.IsRecovering:
				if g.RecoveryTime > 0 {
					ratio := geom.Clamp((t.GloveRecoveryTime-g.RecoveryTime)/t.GloveRecoveryTime, 0, 1)
					gb.Position = geom.Lerp(g.ReturningFrom, goal, ratio)
				} else {
					s.StartIdle(id)
					gb.Position = goal
				}
			case g.IsPunching:
				if g.PunchingTime > 0 {
					break
				}
				if g.HasLaunched {
					s.StartReturn(id)
				} else {
					gb.Velocity = relativeUp.Scale(t.PunchingSpeed)
					g.HasLaunched = true
					g.PunchingTime = t.PunchingTime
				}
			default:
				s.constrain(pb, relativeUp, g, gb)
				toPoint := goal.Sub(gb.Position)
				toVelocity := toPoint.Add(pb.Velocity).Sub(gb.Velocity)
				pull := toVelocity.Scale(t.GloveHoverSpeed).Scale(toPoint.Len()).Div(t.GloveDistSpeedBoost).Scale(dt)
				gb.Velocity = gb.Velocity.Add(pull)
			}
		}
	}
}

// constrain projects an idle glove onto the ring [min, max] around the
// owner, then snaps it to the nearest edge of its sector when outside.
func (s *GloveSystem) constrain(pb physics.Body, relativeUp geom.Vec2, g *Glove, gb *physics.Body) {
	t := s.tuning
	toGlove := gb.Position.Sub(pb.Position)
	if l := toGlove.Len(); l > t.GloveMaxDist {
		gb.Position = pb.Position.Add(toGlove.Normalized().Scale(t.GloveMaxDist))
		toGlove = gb.Position.Sub(pb.Position)
	} else if l < t.GloveMinDist {
		gb.Position = pb.Position.Add(toGlove.Normalized().Scale(t.GloveMinDist))
		toGlove = gb.Position.Sub(pb.Position)
	}

	bound, outside := SectorBound(toGlove, relativeUp, g.Sign, t.GloveAngle1, t.GloveAngle2)
	if outside {
		gb.Position = pb.Position.Add(relativeUp.Rotate(bound).Scale(toGlove.Len()))
	}
}

// SectorBound measures the angle of toGlove counter-clockwise from up and
// checks it against the sector [angle1, angle2], mirrored for negative
// signs. When outside, it returns the bound reached by the shorter arc;
// on a tie the first bound wins.
func SectorBound(toGlove, up geom.Vec2, sign, angle1, angle2 float32) (float32, bool) {
	angle := geom.PosAngle(geom.Degrees(toGlove.Atan2()) - geom.Degrees(up.Atan2()))

	var bound1, bound2 float32
	if sign >= 1 {
		bound1, bound2 = geom.PosAngle(angle1), geom.PosAngle(angle2)
	} else {
		bound1 = geom.PosAngle(float32(angle2 * sign))
		bound2 = geom.PosAngle(float32(angle1 * sign))
	}

	if geom.PosAngle(bound2-bound1) >= geom.PosAngle(angle-bound1) {
		return angle, false
	}
	d1 := geom.ShortArc(geom.PosAngle(angle - bound1))
	d2 := geom.ShortArc(geom.PosAngle(angle - bound2))
	// Equidistant angles go to bound1.
	if d1 <= d2 {
		return bound1, true
	}
	return bound2, true
}
