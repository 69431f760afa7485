package world

// Tile is the value stored in one grid cell. The zero value is the empty
// tile: no collision, not serialized, and chunks holding only empty tiles
// are released.
type Tile struct {
	TypeID uint16
	Flags  uint16
}

// EmptyTile is the distinguished "no tile here" value.
var EmptyTile = Tile{}

func (t Tile) IsEmpty() bool { return t.TypeID == 0 }

// TileWrite is one cell assignment in a batch edit.
type TileWrite struct {
	X, Y int
	Tile Tile
}

// TileChange records an applied cell edit, carried on tile events.
type TileChange struct {
	X, Y int
	Old  Tile
	New  Tile
}
