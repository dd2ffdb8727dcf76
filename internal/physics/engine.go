package physics

import (
	"math"
	"time"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/geom"
	"github.com/glovebox/server/internal/core/system"
)

const (
	// overlapSlop is added to the push-out distance so resolved circles end
	// strictly apart.
	overlapSlop = 0.01
	// DefaultFixedStep is the simulation period in seconds (50 Hz).
	DefaultFixedStep float32 = 0.02
)

// Engine owns one universe's Body and Collider stores. Entity membership
// comes from the shared registry.
type Engine struct {
	reg       *ecs.Registry
	bodies    *ecs.Store[Body]
	colliders *ecs.Store[Collider]
	listener  TriggerListener
	fixedStep float32
}

func NewEngine(reg *ecs.Registry) *Engine {
	return &Engine{
		reg:       reg,
		bodies:    ecs.NewStore[Body](),
		colliders: ecs.NewStore[Collider](),
		fixedStep: DefaultFixedStep,
	}
}

// SetFixedStep changes the period used by Update. The duration handed to
// Update itself is ignored.
func (e *Engine) SetFixedStep(dt float32) { e.fixedStep = dt }

func (e *Engine) Phase() system.Phase { return system.PhasePhysics }

func (e *Engine) Update(_ time.Duration) {
	e.Step(e.fixedStep)
}

// RegisterTriggerListener replaces the single trigger listener.
func (e *Engine) RegisterTriggerListener(l TriggerListener) {
	e.listener = l
}

func (e *Engine) AddBody(id ecs.EntityID, b Body) {
	e.reg.AddComponent(id, ecs.KindBody)
	e.bodies.Add(id, b)
}

func (e *Engine) SetBody(id ecs.EntityID, b Body) { e.bodies.Set(id, b) }
func (e *Engine) Body(id ecs.EntityID) Body       { return e.bodies.Value(id) }
func (e *Engine) BodyRef(id ecs.EntityID) *Body   { return e.bodies.Get(id) }

func (e *Engine) AddCollider(id ecs.EntityID, c Collider) {
	e.reg.AddComponent(id, ecs.KindCollider)
	e.colliders.Add(id, c)
}

func (e *Engine) SetCollider(id ecs.EntityID, c Collider) { e.colliders.Set(id, c) }
func (e *Engine) Collider(id ecs.EntityID) Collider       { return e.colliders.Value(id) }
func (e *Engine) ColliderRef(id ecs.EntityID) *Collider   { return e.colliders.Get(id) }

func (e *Engine) Bodies() *ecs.Store[Body]        { return e.bodies }
func (e *Engine) Colliders() *ecs.Store[Collider] { return e.colliders }

// CopyAllFrom overwrites this universe's physics state with other's.
func (e *Engine) CopyAllFrom(other *Engine) {
	e.bodies.CopyAllFrom(other.bodies)
	e.colliders.CopyAllFrom(other.colliders)
}

// Step integrates every body, then resolves each overlapping pair once.
// Pairs involving a trigger are reported to the listener and not resolved.
func (e *Engine) Step(dt float32) {
	e.reg.Each(ecs.KindBody, ecs.KindDestroyed, func(id ecs.EntityID) {
		b := e.bodies.Get(id)
		b.Position = b.Position.Add(b.Velocity.Scale(dt))
		b.Rotation += float32(b.AngularVelocity * dt)
	})

	const solid = ecs.KindBody | ecs.KindCollider
	// Size is re-read every pass: a trigger callback may create entities.
	for i := 0; i < e.reg.Size(); i++ {
		a, ok := e.collidable(i, solid)
		if !ok {
			continue
		}
		for j := i + 1; j < e.reg.Size(); j++ {
			b, ok := e.collidable(j, solid)
			if !ok {
				continue
			}
			// A previous callback may have disabled a.
			if !e.colliders.Value(a).Enabled {
				break
			}
			e.resolvePair(a, b)
		}
	}
}

func (e *Engine) collidable(i int, solid ecs.Mask) (ecs.EntityID, bool) {
	id, ok := e.reg.At(i)
	if !ok {
		return ecs.InvalidEntity, false
	}
	m := e.reg.Mask(id)
	if !m.Contains(solid) || m.Any(ecs.KindDestroyed) {
		return ecs.InvalidEntity, false
	}
	if !e.colliders.Value(id).Enabled {
		return ecs.InvalidEntity, false
	}
	return id, true
}

func (e *Engine) resolvePair(a, b ecs.EntityID) {
	c1 := e.colliders.Value(a)
	c2 := e.colliders.Value(b)
	b1 := e.bodies.Get(a)
	b2 := e.bodies.Get(b)
	if !radiiIntersect(b1.Position, c1.Radius, b2.Position, c2.Radius) {
		return
	}
	if c1.IsTrigger || c2.IsTrigger {
		if e.listener != nil {
			e.listener.OnTrigger(a, b)
		}
		return
	}
	solveVelocities(b1, b2)
	solveOverlap(b1, b2, c1.Radius+c2.Radius)
}

func radiiIntersect(p1 geom.Vec2, r1 float32, p2 geom.Vec2, r2 float32) bool {
	return p1.Sub(p2).Len() <= r1+r2
}

// solveOverlap pushes the bodies apart along their center line, the
// lighter body moving more.
func solveOverlap(b1, b2 *Body, radii float32) {
	m1, m2 := b1.Mass, b2.Mass
	prop1 := m2 / (m1 + m2)
	prop2 := m1 / (m1 + m2)
	switch {
	case b1.Type == Static && b2.Type == Static:
		prop1, prop2 = 0, 0
	case b1.Type == Static:
		prop1, prop2 = 0, 1
	case b2.Type == Static:
		prop1, prop2 = 1, 0
	}

	delta := b1.Position.Sub(b2.Position)
	mtv := delta.Normalized().Scale(radii - delta.Len() + overlapSlop)
	b1.Position = b1.Position.Add(mtv.Scale(prop1))
	b2.Position = b2.Position.Sub(mtv.Scale(prop2))
}

// solveVelocities applies a two-dimensional elastic collision. Against a
// static body the dynamic velocity is mirrored about the contact normal.
func solveVelocities(b1, b2 *Body) {
	if b1.Type == Static && b2.Type == Static {
		return
	}
	normal := b1.Position.Sub(b2.Position).Normalized()

	if b1.Type == Static || b2.Type == Static {
		dyn := b1
		if b1.Type == Static {
			dyn = b2
		}
		n := normal.Neg()
		k := float32(2 * geom.Dot(dyn.Velocity, n))
		dyn.Velocity = dyn.Velocity.Sub(n.Scale(k))
		return
	}

	v1 := float64(b1.Velocity.Len())
	v2 := float64(b2.Velocity.Len())
	m1 := float64(b1.Mass)
	m2 := float64(b2.Mass)
	theta1 := float64(b1.Velocity.Atan2())
	theta2 := float64(b2.Velocity.Atan2())
	phi := float64(normal.Atan2())

	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	cosPerp, sinPerp := math.Cos(phi+math.Pi/2), math.Sin(phi+math.Pi/2)
	c1, s1 := math.Cos(theta1-phi), math.Sin(theta1-phi)
	c2, s2 := math.Cos(theta2-phi), math.Sin(theta2-phi)

	// Normal components exchange momentum; tangential components are kept.
	n1 := (float64(float64(v1*c1)*(m1-m2)) + float64(float64(float64(2*m2)*v2)*c2)) / (m1 + m2)
	n2 := (float64(float64(v2*c2)*(m2-m1)) + float64(float64(float64(2*m1)*v1)*c1)) / (m2 + m1)
	t1 := float64(v1 * s1)
	t2 := float64(v2 * s2)

	b1.Velocity = geom.Vec2{
		X: float32(float64(n1*cosPhi) + float64(t1*cosPerp)),
		Y: float32(float64(n1*sinPhi) + float64(t1*sinPerp)),
	}
	b2.Velocity = geom.Vec2{
		X: float32(float64(n2*cosPhi) + float64(t2*cosPerp)),
		Y: float32(float64(n2*sinPhi) + float64(t2*sinPerp)),
	}
}
