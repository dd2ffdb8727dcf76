package gameplay

import (
	"time"

	"github.com/glovebox/server/internal/core/ecs"
	coresys "github.com/glovebox/server/internal/core/system"
)

// EffectSystem ages cosmetic effects and hands expired ones to the destroyer.
type EffectSystem struct {
	reg       *ecs.Registry
	tuning    *Tuning
	destroyer Destroyer
	store     *ecs.Store[Effect]
}

func NewEffectSystem(reg *ecs.Registry, tuning *Tuning, destroyer Destroyer) *EffectSystem {
	return &EffectSystem{
		reg:       reg,
		tuning:    tuning,
		destroyer: destroyer,
		store:     ecs.NewStore[Effect](),
	}
}

func (s *EffectSystem) Phase() coresys.Phase { return coresys.PhaseEffects }

func (s *EffectSystem) Update(_ time.Duration) {
	s.Step(s.tuning.FixedPeriod)
}

func (s *EffectSystem) Add(id ecs.EntityID, e Effect) {
	s.reg.AddComponent(id, ecs.KindEffect)
	s.store.Add(id, e)
}

func (s *EffectSystem) Get(id ecs.EntityID) Effect { return s.store.Value(id) }

func (s *EffectSystem) Store() *ecs.Store[Effect] { return s.store }

func (s *EffectSystem) CopyAllFrom(other *EffectSystem) {
	s.store.CopyAllFrom(other.store)
}

// Step shortens every live effect's lifetime and destroys those that ran out.
func (s *EffectSystem) Step(dt float32) {
	s.reg.Each(ecs.KindEffect, ecs.KindDestroyed, func(id ecs.EntityID) {
		e := s.store.Get(id)
		e.Lifetime -= dt
		if e.Lifetime < 0 {
			s.destroyer.DestroyEntity(id)
		}
	})
}

// NewEffect returns an effect of the given type with its full lifetime.
func (t *Tuning) NewEffect(typ EffectType) Effect {
	life := t.EffectLifetime
	if typ == EffectSkull || typ == EffectTrophy {
		life = t.IconLifetime
	}
	return Effect{Type: typ, Lifetime: life, StartingTime: life}
}
