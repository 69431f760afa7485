package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TileDef describes one tile prototype, loaded from tile_list.yaml.
// Type ID 0 is reserved for the empty tile and may not be declared.
type TileDef struct {
	TypeID uint16 `yaml:"type_id"`
	Name   string `yaml:"name"`
	Solid  bool   `yaml:"solid"`
}

// TileTable provides tile prototype lookups. Chunk fixture building consults
// Solid to decide which cells contribute collision.
type TileTable struct {
	byID map[uint16]TileDef
}

type tileListFile struct {
	Tiles []TileDef `yaml:"tiles"`
}

// LoadTileTable loads tile prototypes from a YAML file.
func LoadTileTable(path string) (*TileTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tile list %s: %w", path, err)
	}
	var file tileListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse tile list: %w", err)
	}
	return NewTileTable(file.Tiles)
}

// NewTileTable builds a table from in-memory definitions.
func NewTileTable(defs []TileDef) (*TileTable, error) {
	t := &TileTable{byID: make(map[uint16]TileDef, len(defs))}
	for _, d := range defs {
		if d.TypeID == 0 {
			return nil, fmt.Errorf("tile %q: type_id 0 is reserved for empty", d.Name)
		}
		if _, dup := t.byID[d.TypeID]; dup {
			return nil, fmt.Errorf("tile %q: duplicate type_id %d", d.Name, d.TypeID)
		}
		t.byID[d.TypeID] = d
	}
	return t, nil
}

// Get returns the prototype for a tile type ID.
func (t *TileTable) Get(id uint16) (TileDef, bool) {
	d, ok := t.byID[id]
	return d, ok
}

// IsSolid reports whether a tile type contributes collision. Unknown types
// and the empty tile are non-solid.
func (t *TileTable) IsSolid(id uint16) bool {
	return t.byID[id].Solid
}

func (t *TileTable) Count() int {
	return len(t.byID)
}
