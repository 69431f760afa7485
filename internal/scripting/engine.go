package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridforge/server/internal/geom"
	"github.com/gridforge/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM exposing the spatial registry to
// gameplay scripts. Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	mgr *world.Manager
	log *zap.Logger
}

// NewEngine creates a Lua engine, registers the world API, and loads all
// scripts from the given directory.
func NewEngine(scriptsDir string, mgr *world.Manager, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, mgr: mgr, log: log}
	e.registerWorldAPI()

	for _, sub := range []string{"world", "hooks"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory. Missing directories are skipped.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// DoString executes a Lua chunk. Used by gm commands and tests.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) Close() {
	e.vm.Close()
}

// registerWorldAPI installs the `world` table. Errors from the registry are
// surfaced as Lua errors so scripts fail loudly on bad IDs.
func (e *Engine) registerWorldAPI() {
	t := e.vm.NewTable()

	e.vm.SetField(t, "create_map", e.vm.NewFunction(func(L *lua.LState) int {
		id, err := e.mgr.CreateMap()
		if err != nil {
			L.RaiseError("create_map: %v", err)
		}
		L.Push(lua.LNumber(id))
		return 1
	}))

	e.vm.SetField(t, "delete_map", e.vm.NewFunction(func(L *lua.LState) int {
		if err := e.mgr.DeleteMap(world.MapID(L.CheckInt(1))); err != nil {
			L.RaiseError("delete_map: %v", err)
		}
		return 0
	}))

	e.vm.SetField(t, "create_grid", e.vm.NewFunction(func(L *lua.LState) int {
		mapID := world.MapID(L.CheckInt(1))
		size := L.OptInt(2, 0)
		g, err := e.mgr.CreateGrid(mapID, world.GridOptions{ChunkSize: size})
		if err != nil {
			L.RaiseError("create_grid: %v", err)
		}
		L.Push(lua.LNumber(g.ID()))
		return 1
	}))

	e.vm.SetField(t, "delete_grid", e.vm.NewFunction(func(L *lua.LState) int {
		e.mgr.DeleteGrid(world.GridID(L.CheckInt(1)))
		return 0
	}))

	e.vm.SetField(t, "set_tile", e.vm.NewFunction(func(L *lua.LState) int {
		gridID := world.GridID(L.CheckInt(1))
		x, y := L.CheckInt(2), L.CheckInt(3)
		typeID := uint16(L.CheckInt(4))
		if err := e.mgr.SetTile(gridID, x, y, world.Tile{TypeID: typeID}); err != nil {
			L.RaiseError("set_tile: %v", err)
		}
		return 0
	}))

	e.vm.SetField(t, "get_tile", e.vm.NewFunction(func(L *lua.LState) int {
		g, err := e.mgr.GetGrid(world.GridID(L.CheckInt(1)))
		if err != nil {
			L.RaiseError("get_tile: %v", err)
		}
		tile := g.TileAt(L.CheckInt(2), L.CheckInt(3))
		L.Push(lua.LNumber(tile.TypeID))
		return 1
	}))

	e.vm.SetField(t, "all_maps", e.vm.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		for _, id := range e.mgr.AllMapIDs() {
			out.Append(lua.LNumber(id))
		}
		L.Push(out)
		return 1
	}))

	e.vm.SetField(t, "find_grid_at", e.vm.NewFunction(func(L *lua.LState) int {
		mapID := world.MapID(L.CheckInt(1))
		p := geom.Vec2{X: float64(L.CheckNumber(2)), Y: float64(L.CheckNumber(3))}
		g, ok := e.mgr.TryFindGridAt(mapID, p)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(g.ID()))
		return 1
	}))

	e.vm.SetField(t, "grids_intersecting", e.vm.NewFunction(func(L *lua.LState) int {
		mapID := world.MapID(L.CheckInt(1))
		region := geom.NewAABB(
			float64(L.CheckNumber(2)), float64(L.CheckNumber(3)),
			float64(L.CheckNumber(4)), float64(L.CheckNumber(5)),
		)
		approx := L.OptBool(6, false)
		out := L.NewTable()
		for _, g := range e.mgr.FindGridsIntersecting(mapID, region, approx) {
			out.Append(lua.LNumber(g.ID()))
		}
		L.Push(out)
		return 1
	}))

	e.vm.SetGlobal("world", t)
}
