package system

import "time"

// Phase defines execution ordering within a single fixed step.
type Phase int

const (
	PhaseInput   Phase = iota // 0: apply player input, move characters
	PhaseUpdate               // 1: glove state machines
	PhasePhysics              // 2: integrate, collide, fire triggers
	PhaseEffects              // 3: age cosmetic effects
	PhaseCleanup              // 4: host-side bookkeeping
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseUpdate:
		return "update"
	case PhasePhysics:
		return "physics"
	case PhaseEffects:
		return "effects"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
