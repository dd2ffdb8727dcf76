package event

import (
	"github.com/google/uuid"

	"github.com/glovebox/server/internal/core/ecs"
)

// Host-level notifications. Simulation state never depends on them.

type PlayerJoined struct {
	ClientID uuid.UUID
	Player   uint8
	Name     string
}

type PlayerLeft struct {
	ClientID uuid.UUID
	Player   uint8
}

type MatchStarted struct {
	StartAtMillis int64
}

// HitLanded is published once per hit, from the validation pass only.
// DamagePercent is the victim's total after the hit.
type HitLanded struct {
	Frame         uint32
	Attacker      uint8
	Victim        uint8
	DamagePercent float32
	Glove         ecs.EntityID
}

type GloveClash struct {
	Frame  uint32
	Parry  bool
	First  ecs.EntityID
	Second ecs.EntityID
}

// MatchWon carries Winner < 0 when the match ended without a winner.
type MatchWon struct {
	Frame  uint32
	Winner int
}
