package ecs

// Mask is a set of component kinds.
type Mask uint32

// Component kinds. The set is closed: the game has exactly these archetypes.
const (
	KindBody Mask = 1 << iota
	KindCollider
	KindTransform
	KindPlayerCharacter
	KindGlove
	KindEffect
	// KindDestroyed is a tombstone, not a component. It marks an entity
	// destroyed inside the speculative window until that frame is validated.
	KindDestroyed
)

// Contains reports whether all bits of sub are set in m.
func (m Mask) Contains(sub Mask) bool {
	return m&sub == sub
}

func (m Mask) Any(sub Mask) bool {
	return m&sub != 0
}

func (m Mask) String() string {
	if m == 0 {
		return "none"
	}
	names := [...]string{"body", "collider", "transform", "player", "glove", "effect", "destroyed"}
	out := make([]byte, 0, 48)
	for i, n := range names {
		if m&(1<<uint(i)) == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, '|')
		}
		out = append(out, n...)
	}
	return string(out)
}
