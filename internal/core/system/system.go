package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain external commands, script hooks
	PhaseUpdate                  // 1: gameplay mutations of the registries
	PhaseBroadphase              // 2: spatial scans, contact pair generation
	PhaseOutput                  // 3: observer/event fan-out to remote sinks
	PhasePersist                 // 4: snapshot flush
	PhaseCleanup                 // 5: destroy queued entities
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
