package world

import "errors"

var (
	// ErrDuplicateID is returned when creating a map or grid whose explicit
	// ID is already active, or when two orphan entities both claim the same
	// map/grid index during rebinding.
	ErrDuplicateID = errors.New("id already in use")

	// ErrNotFound is returned when operating on an unregistered map or grid ID.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation is returned for precondition violations that are
	// neither duplicates nor missing records: deleting nullspace outside a
	// restart, or rebinding a root entity that already serves another map.
	ErrInvalidOperation = errors.New("invalid operation")
)
