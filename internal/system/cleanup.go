package system

import (
	"time"

	coresys "github.com/gridforge/server/internal/core/system"
	"github.com/gridforge/server/internal/world"
)

// CleanupSystem deletes entities queued for destruction during the tick.
// Runs last so every other system sees a stable entity set.
type CleanupSystem struct {
	em *world.EntityManager
}

func NewCleanupSystem(em *world.EntityManager) *CleanupSystem {
	return &CleanupSystem{em: em}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(dt time.Duration) {
	s.em.FlushDeferred()
}
