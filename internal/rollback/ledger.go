package rollback

import "github.com/glovebox/server/internal/core/ecs"

// createdEntity records an entity spawned by a replayed frame. Such
// entities exist only speculatively until their frame is validated.
type createdEntity struct {
	entity ecs.EntityID
	frame  Frame
}

type ledger struct {
	entries []createdEntity
}

func (l *ledger) record(id ecs.EntityID, frame Frame) {
	l.entries = append(l.entries, createdEntity{entity: id, frame: frame})
}

// take removes id from the ledger and reports whether it was there.
func (l *ledger) take(id ecs.EntityID) bool {
	for i, e := range l.entries {
		if e.entity == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// after calls fn for every entry stamped strictly after frame.
func (l *ledger) after(frame Frame, fn func(ecs.EntityID)) {
	for _, e := range l.entries {
		if e.frame > frame {
			fn(e.entity)
		}
	}
}

func (l *ledger) clear() { l.entries = l.entries[:0] }

func (l *ledger) len() int { return len(l.entries) }
