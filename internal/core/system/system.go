package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: dispatch last tick's events
	PhaseUpdate                  // 1: AI decisions, path planning
	PhaseMovement                // 2: advance actors along their paths
	PhasePostUpdate              // 3: stats
	PhasePersist                 // 4: map snapshots
)

func (p Phase) String() string {
	switch p {
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhaseMovement:
		return "movement"
	case PhasePostUpdate:
		return "post_update"
	case PhasePersist:
		return "persist"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
