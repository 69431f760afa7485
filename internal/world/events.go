package world

// Registry lifecycle events. Delivery is synchronous at the point of the
// state change, in subscriber registration order.

type MapCreatedEvent struct {
	MapID MapID
}

type MapRemovedEvent struct {
	MapID MapID
}

type GridCreatedEvent struct {
	MapID  MapID
	GridID GridID
}

type GridRemovedEvent struct {
	MapID  MapID
	GridID GridID
}

// TileChangedEvent fires per modified cell. Suppressible registry-wide for
// bulk loads; GridChangedEvent still fires so chunk-level consumers stay
// consistent.
type TileChangedEvent struct {
	GridID GridID
	Change TileChange
}

// GridChangedEvent aggregates all cells touched by one edit operation.
type GridChangedEvent struct {
	GridID   GridID
	Modified []TileChange
}
