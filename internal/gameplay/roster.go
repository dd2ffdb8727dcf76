package gameplay

import "github.com/glovebox/server/internal/core/ecs"

// Roster maps player numbers to their entities. Entities that were never
// spawned are reported as ecs.InvalidEntity.
type Roster interface {
	PlayerEntity(p PlayerNumber) ecs.EntityID
	GloveEntities(p PlayerNumber) [2]ecs.EntityID
}

// Destroyer removes an entity in a rollback-aware way.
type Destroyer interface {
	DestroyEntity(id ecs.EntityID)
}
