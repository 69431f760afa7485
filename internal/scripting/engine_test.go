package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gridforge/server/internal/core/event"
	"github.com/gridforge/server/internal/world"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, scriptsDir string) (*Engine, *world.Manager) {
	t.Helper()
	em := world.NewEntityManager(zap.NewNop())
	mgr := world.NewManager(em, event.NewBus(), nil, nil, zap.NewNop())
	if scriptsDir == "" {
		scriptsDir = t.TempDir()
	}
	e, err := NewEngine(scriptsDir, mgr, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e, mgr
}

func TestWorldAPIRoundTrip(t *testing.T) {
	e, mgr := newTestEngine(t, "")
	src := `
local map = world.create_map()
local grid = world.create_grid(map, 16)
world.set_tile(grid, 3, 4, 7)
tile = world.get_tile(grid, 3, 4)
found = world.find_grid_at(map, 3.5, 4.5)
missed = world.find_grid_at(map, 100, 100)
hits = world.grids_intersecting(map, 0, 0, 10, 10)
`
	if err := e.DoString(src); err != nil {
		t.Fatal(err)
	}

	if got := e.vm.GetGlobal("tile").String(); got != "7" {
		t.Errorf("tile = %s, want 7", got)
	}
	if got := e.vm.GetGlobal("found").String(); got == "nil" {
		t.Error("find_grid_at over the tile should return a grid ID")
	}
	if got := e.vm.GetGlobal("missed").String(); got != "nil" {
		t.Errorf("find_grid_at away from tiles = %s, want nil", got)
	}
	if len(mgr.AllGrids()) != 1 {
		t.Fatalf("registry has %d grids, want 1", len(mgr.AllGrids()))
	}
}

func TestAllMapsAndDeletion(t *testing.T) {
	e, mgr := newTestEngine(t, "")
	src := `
before = #world.all_maps()
local map = world.create_map()
during = #world.all_maps()
world.delete_map(map)
after = #world.all_maps()
`
	if err := e.DoString(src); err != nil {
		t.Fatal(err)
	}
	if e.vm.GetGlobal("before").String() != "1" { // nullspace
		t.Error("fresh registry should expose only nullspace")
	}
	if e.vm.GetGlobal("during").String() != "2" {
		t.Error("created map missing from all_maps")
	}
	if e.vm.GetGlobal("after").String() != "1" {
		t.Error("deleted map still listed")
	}
	if len(mgr.AllMapIDs()) != 1 {
		t.Error("registry state out of sync with script view")
	}
}

func TestScriptErrorsSurfaceAsLuaErrors(t *testing.T) {
	e, _ := newTestEngine(t, "")
	if err := e.DoString(`world.delete_map(999)`); err == nil {
		t.Fatal("deleting a missing map should raise")
	}
	if err := e.DoString(`world.set_tile(42, 0, 0, 1)`); err == nil {
		t.Fatal("writing a missing grid should raise")
	}
}

func TestBootScriptsLoadAtStartup(t *testing.T) {
	dir := t.TempDir()
	worldDir := filepath.Join(dir, "world")
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		t.Fatal(err)
	}
	script := `boot_map = world.create_map()`
	if err := os.WriteFile(filepath.Join(worldDir, "boot.lua"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	e, mgr := newTestEngine(t, dir)
	if e.vm.GetGlobal("boot_map").String() == "nil" {
		t.Fatal("startup script did not run")
	}
	if len(mgr.AllMapIDs()) != 2 {
		t.Fatal("startup script did not create the map")
	}
}

func TestBrokenBootScriptFailsStartup(t *testing.T) {
	dir := t.TempDir()
	worldDir := filepath.Join(dir, "world")
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(worldDir, "bad.lua"), []byte("this is not lua ("), 0o644); err != nil {
		t.Fatal(err)
	}
	em := world.NewEntityManager(zap.NewNop())
	mgr := world.NewManager(em, event.NewBus(), nil, nil, zap.NewNop())
	if _, err := NewEngine(dir, mgr, zap.NewNop()); err == nil {
		t.Fatal("syntax error in a boot script should fail engine construction")
	}
}
