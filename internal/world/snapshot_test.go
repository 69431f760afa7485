package world

import (
	"testing"

	"github.com/gridforge/server/internal/core/event"
)

func TestSnapshotRoundTrip(t *testing.T) {
	src, _, clock := newTestManager(t)
	clock.tick = 100
	mapA := mustCreateMap(t, src)
	clock.tick = 200
	mapB := mustCreateMap(t, src)

	ga := mustCreateGrid(t, src, mapA)
	gb, err := src.CreateGrid(mapB, GridOptions{ChunkSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	mustSetTile(t, src, ga.ID(), 0, 0, tileWall)
	mustSetTile(t, src, ga.ID(), -20, 33, tileFloor)
	mustSetTile(t, src, gb.ID(), 7, -7, tileWall)

	snap := src.ExportSnapshot()

	dst, bus, _ := newTestManager(t)
	var tileEvents int
	event.Subscribe(bus, func(TileChangedEvent) { tileEvents++ })
	if err := dst.RestoreSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	if !dst.MapExists(mapA) || !dst.MapExists(mapB) {
		t.Fatal("restored registry is missing maps")
	}
	if tick, _ := dst.MapCreatedTick(mapA); tick != 100 {
		t.Errorf("map %d created tick = %d, want 100", mapA, tick)
	}
	if tick, _ := dst.MapCreatedTick(mapB); tick != 200 {
		t.Errorf("map %d created tick = %d, want 200", mapB, tick)
	}

	ra, err := dst.GetGrid(ga.ID())
	if err != nil {
		t.Fatal(err)
	}
	rb, err := dst.GetGrid(gb.ID())
	if err != nil {
		t.Fatal(err)
	}
	if rb.ChunkSize() != 8 {
		t.Errorf("restored chunk size = %d, want 8", rb.ChunkSize())
	}
	if got := ra.TileAt(0, 0); got.TypeID != tileWall {
		t.Errorf("tile (0,0) = %+v, want wall", got)
	}
	if got := ra.TileAt(-20, 33); got.TypeID != tileFloor {
		t.Errorf("tile (-20,33) = %+v, want floor", got)
	}
	if got := rb.TileAt(7, -7); got.TypeID != tileWall {
		t.Errorf("tile (7,-7) = %+v, want wall", got)
	}

	if tileEvents != 0 {
		t.Errorf("restore fired %d per-cell events, want 0", tileEvents)
	}

	// Fresh allocations must not collide with restored identities.
	next := mustCreateMap(t, dst)
	if next <= mapB {
		t.Fatalf("post-restore map ID %d collides with restored IDs", next)
	}
	ng := mustCreateGrid(t, dst, next)
	if ng.ID() <= gb.ID() {
		t.Fatalf("post-restore grid ID %d collides with restored IDs", ng.ID())
	}
}

func TestSnapshotIncludesNullspaceGrids(t *testing.T) {
	src, _, _ := newTestManager(t)
	g := mustCreateGrid(t, src, Nullspace)
	mustSetTile(t, src, g.ID(), 1, 1, tileFloor)

	snap := src.ExportSnapshot()
	dst, _, _ := newTestManager(t)
	if err := dst.RestoreSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	rg, err := dst.GetGrid(g.ID())
	if err != nil {
		t.Fatal(err)
	}
	if rg.MapID() != Nullspace {
		t.Fatalf("restored grid map = %d, want nullspace", rg.MapID())
	}
	if rg.TileAt(1, 1).TypeID != tileFloor {
		t.Fatal("nullspace grid tiles did not round-trip")
	}
}

func TestRestoreSkipsExistingMaps(t *testing.T) {
	src, _, clock := newTestManager(t)
	clock.tick = 9
	mapID := mustCreateMap(t, src)
	snap := src.ExportSnapshot()

	dst, _, dstClock := newTestManager(t)
	dstClock.tick = 55
	if got := mustCreateMap(t, dst); got != mapID {
		t.Fatalf("setup: expected matching map ID, got %d", got)
	}
	if err := dst.RestoreSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	// The pre-existing map keeps its own creation tick.
	if tick, _ := dst.MapCreatedTick(mapID); tick != 55 {
		t.Errorf("existing map tick = %d, want 55", tick)
	}
}

func TestSnapshotIsDeterministicallyOrdered(t *testing.T) {
	m, _, _ := newTestManager(t)
	for i := 0; i < 5; i++ {
		mapID := mustCreateMap(t, m)
		mustCreateGrid(t, m, mapID)
	}
	snap := m.ExportSnapshot()
	for i := 1; i < len(snap.Maps); i++ {
		if snap.Maps[i-1].ID >= snap.Maps[i].ID {
			t.Fatal("map snapshots not sorted by ID")
		}
	}
	for i := 1; i < len(snap.Grids); i++ {
		if snap.Grids[i-1].ID >= snap.Grids[i].ID {
			t.Fatal("grid snapshots not sorted by ID")
		}
	}
}
