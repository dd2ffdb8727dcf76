package gameplay

import "github.com/glovebox/server/internal/core/geom"

// PlayerNumber identifies a seat in the match: 0 or 1.
type PlayerNumber uint8

const InvalidPlayer PlayerNumber = 0xFF

// Input is the per-frame button bitmask of one player.
type Input uint8

const (
	InputUp Input = 1 << iota
	InputDown
	InputLeft
	InputRight
	InputPunch
	InputPunch2
)

func (i Input) Has(bit Input) bool { return i&bit != 0 }

// axis returns -1, 0 or 1 for a pair of opposing buttons.
func (i Input) axis(neg, pos Input) float32 {
	var v float32
	if i.Has(neg) {
		v--
	}
	if i.Has(pos) {
		v++
	}
	return v
}

type PlayerCharacter struct {
	Player            PlayerNumber
	Input             Input
	DamagePercent     float32
	InvincibilityTime float32
	KnockbackTime     float32
}

type Glove struct {
	Player PlayerNumber
	// Sign mirrors the glove's sector: +1 for the first glove, -1 for the second.
	Sign float32

	PunchingTime float32
	RecoveryTime float32

	IsPunching   bool
	IsRecovering bool
	HasLaunched  bool

	VelFromPlayer geom.Vec2
	ReturningFrom geom.Vec2
}

// Idle reports whether the glove is free to start a punch.
func (g Glove) Idle() bool { return !g.IsPunching && !g.IsRecovering }

type EffectType uint8

const (
	EffectHit EffectType = iota
	EffectHitBig
	EffectSkull
	EffectTrophy
)

func (t EffectType) String() string {
	switch t {
	case EffectHit:
		return "hit"
	case EffectHitBig:
		return "hit_big"
	case EffectSkull:
		return "skull"
	case EffectTrophy:
		return "trophy"
	}
	return "unknown"
}

// Effect is a cosmetic timed entity. It never takes part in checksums.
type Effect struct {
	Type         EffectType
	Lifetime     float32
	StartingTime float32
}

// Transform is the render-facing pose copied from bodies after a replay.
type Transform struct {
	Position geom.Vec2
	Rotation float32
}
