package world

import (
	"testing"

	"github.com/gridforge/server/internal/core/event"
	"github.com/gridforge/server/internal/data"
	"go.uber.org/zap"
)

// Tile types shared by the registry tests. Floor carries no collision,
// wall does.
const (
	tileFloor uint16 = 1
	tileWall  uint16 = 2
)

type stubClock struct{ tick uint64 }

func (c *stubClock) CurrentTick() uint64 { return c.tick }

func newTestManager(t *testing.T) (*Manager, *event.Bus, *stubClock) {
	t.Helper()
	tiles, err := data.NewTileTable([]data.TileDef{
		{TypeID: tileFloor, Name: "floor", Solid: false},
		{TypeID: tileWall, Name: "wall", Solid: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	bus := event.NewBus()
	clock := &stubClock{}
	em := NewEntityManager(zap.NewNop())
	return NewManager(em, bus, tiles, clock, zap.NewNop()), bus, clock
}

func mustCreateMap(t *testing.T, m *Manager) MapID {
	t.Helper()
	id, err := m.CreateMap()
	if err != nil {
		t.Fatalf("create map: %v", err)
	}
	return id
}

func mustCreateGrid(t *testing.T, m *Manager, mapID MapID) *Grid {
	t.Helper()
	g, err := m.CreateGrid(mapID, GridOptions{})
	if err != nil {
		t.Fatalf("create grid: %v", err)
	}
	return g
}

func mustSetTile(t *testing.T, m *Manager, id GridID, x, y int, typeID uint16) {
	t.Helper()
	if err := m.SetTile(id, x, y, Tile{TypeID: typeID}); err != nil {
		t.Fatalf("set tile (%d,%d): %v", x, y, err)
	}
}
