package system

import (
	"context"
	"time"

	coresys "github.com/gridforge/server/internal/core/system"
	"github.com/gridforge/server/internal/world"
	"go.uber.org/zap"
)

// SnapshotStore persists world snapshots. Implemented by persist.SnapshotRepo
// against PostgreSQL; tests substitute an in-memory store.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *world.Snapshot) error
}

// PersistenceSystem flushes a full world snapshot on a tick interval when
// any grid has unsaved edits, and unconditionally on Flush at shutdown.
type PersistenceSystem struct {
	mgr      *world.Manager
	store    SnapshotStore
	interval int
	counter  int
	log      *zap.Logger
}

func NewPersistenceSystem(mgr *world.Manager, store SnapshotStore, intervalTicks int, log *zap.Logger) *PersistenceSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1500
	}
	return &PersistenceSystem{mgr: mgr, store: store, interval: intervalTicks, log: log}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(dt time.Duration) {
	s.counter++
	if s.counter < s.interval {
		return
	}
	s.counter = 0
	if !s.anyDirty() {
		return
	}
	s.Flush()
}

func (s *PersistenceSystem) anyDirty() bool {
	for _, g := range s.mgr.AllGrids() {
		if g.Dirty() {
			return true
		}
	}
	return false
}

// Flush exports and saves a snapshot, clearing grid dirty flags on success.
func (s *PersistenceSystem) Flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap := s.mgr.ExportSnapshot()
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		s.log.Error("snapshot save failed", zap.Error(err))
		return
	}
	for _, g := range s.mgr.AllGrids() {
		g.ClearDirty()
	}
	s.log.Info("snapshot saved",
		zap.Int("maps", len(snap.Maps)),
		zap.Int("grids", len(snap.Grids)))
}
