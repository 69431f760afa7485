package data

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTileTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile_list.yaml")
	src := `tiles:
  - type_id: 1
    name: floor_steel
    solid: false
  - type_id: 2
    name: wall_steel
    solid: true
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadTileTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Fatalf("loaded %d tiles, want 2", table.Count())
	}
	d, ok := table.Get(2)
	if !ok || d.Name != "wall_steel" || !d.Solid {
		t.Fatalf("tile 2 = %+v", d)
	}
	if table.IsSolid(1) {
		t.Error("floor should not be solid")
	}
	if table.IsSolid(99) || table.IsSolid(0) {
		t.Error("unknown and empty tiles are non-solid")
	}
}

func TestLoadTileTableMissingFile(t *testing.T) {
	if _, err := LoadTileTable(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestNewTileTableRejectsReservedID(t *testing.T) {
	_, err := NewTileTable([]TileDef{{TypeID: 0, Name: "void"}})
	if err == nil {
		t.Fatal("type_id 0 is reserved and must be rejected")
	}
}

func TestNewTileTableRejectsDuplicates(t *testing.T) {
	_, err := NewTileTable([]TileDef{
		{TypeID: 3, Name: "a"},
		{TypeID: 3, Name: "b"},
	})
	if err == nil {
		t.Fatal("duplicate type_id must be rejected")
	}
}
