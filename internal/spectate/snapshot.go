package spectate

import (
	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/match"
)

// Snapshot is what a renderer needs to draw one frame.
type Snapshot struct {
	Frame     uint32   `json:"frame"`
	Validated uint32   `json:"validated"`
	Winner    *int     `json:"winner,omitempty"`
	Entities  []Entity `json:"entities"`
}

type Entity struct {
	ID       uint64  `json:"id"`
	Kind     string  `json:"kind"` // player, glove or effect
	Player   int     `json:"player"`
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Rotation float32 `json:"rotation"`
	Damage   float32 `json:"damage,omitempty"`
	Punching bool    `json:"punching,omitempty"`
	Effect   string  `json:"effect,omitempty"`
}

// Capture reads the current state of gm. Bodies give the position of
// players and gloves; effects have no body and use their transform.
func Capture(gm *match.GameManager) Snapshot {
	rb := gm.Rollback()
	s := Snapshot{
		Frame:     rb.CurrentFrame(),
		Validated: rb.LastValidatedFrame(),
	}
	if w := gm.Winner(); w != gameplay.InvalidPlayer {
		n := int(w)
		s.Winner = &n
	}

	reg := gm.World().Registry()
	reg.Each(ecs.KindTransform, ecs.KindDestroyed, func(id ecs.EntityID) {
		e := Entity{ID: uint64(id), Player: -1}
		mask := reg.Mask(id)
		if mask.Contains(ecs.KindBody) {
			b := rb.Body(id)
			e.X, e.Y, e.Rotation = b.Position.X, b.Position.Y, b.Rotation
		} else {
			tr := rb.Transform(id)
			e.X, e.Y, e.Rotation = tr.Position.X, tr.Position.Y, tr.Rotation
		}
		switch {
		case mask.Contains(ecs.KindPlayerCharacter):
			pc := rb.PlayerCharacter(id)
			e.Kind = "player"
			e.Player = int(pc.Player)
			e.Damage = pc.DamagePercent
		case mask.Contains(ecs.KindGlove):
			g := rb.Glove(id)
			e.Kind = "glove"
			e.Player = int(g.Player)
			e.Punching = g.IsPunching
		case mask.Contains(ecs.KindEffect):
			e.Kind = "effect"
			e.Effect = rb.Effect(id).Type.String()
		default:
			return
		}
		s.Entities = append(s.Entities, e)
	})
	return s
}
