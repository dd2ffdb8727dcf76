package system

import (
	"sort"
	"time"
)

// Runner steps its systems in phase order. Systems sharing a phase keep
// their registration order, which the simulation relies on for
// determinism.
type Runner struct {
	systems []System
}

func NewRunner() *Runner {
	return &Runner{systems: make([]System, 0, 8)}
}

// Register inserts s after every system of the same or an earlier phase.
func (r *Runner) Register(s System) {
	at := sort.Search(len(r.systems), func(i int) bool {
		return r.systems[i].Phase() > s.Phase()
	})
	r.systems = append(r.systems, nil)
	copy(r.systems[at+1:], r.systems[at:])
	r.systems[at] = s
}

// Tick runs one fixed step.
func (r *Runner) Tick(dt time.Duration) {
	for _, s := range r.systems {
		s.Update(dt)
	}
}

// TickPhase runs only the systems of one phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	for _, s := range r.systems {
		switch p := s.Phase(); {
		case p == phase:
			s.Update(dt)
		case p > phase:
			return
		}
	}
}

func (r *Runner) Len() int { return len(r.systems) }
