package physics

import (
	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/geom"
)

type BodyType uint8

const (
	Dynamic BodyType = iota
	// Static bodies have infinite mass: they are never displaced and
	// dynamic bodies bounce off them.
	Static
)

func (t BodyType) String() string {
	if t == Static {
		return "static"
	}
	return "dynamic"
}

// Body is a rigid body. Rotation and AngularVelocity are in degrees.
type Body struct {
	Mass            float32
	Position        geom.Vec2
	Velocity        geom.Vec2
	Rotation        float32
	AngularVelocity float32
	Type            BodyType
}

func NewBody() Body {
	return Body{Mass: 1}
}

// Collider is a circle centered on the body position.
type Collider struct {
	Radius    float32
	IsTrigger bool
	Enabled   bool
}

// TriggerListener receives overlaps involving a trigger collider. The
// first id always has the lower index.
type TriggerListener interface {
	OnTrigger(first, second ecs.EntityID)
}
