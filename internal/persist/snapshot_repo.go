package persist

import (
	"context"
	"fmt"

	"github.com/gridforge/server/internal/world"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotRepo stores world snapshots. Chunk cells are msgpack-encoded
// blobs; the rest of the snapshot maps onto relational rows so partial
// queries (all grids of a map, one chunk) stay possible.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// SaveSnapshot replaces the stored world state atomically.
func (r *SnapshotRepo) SaveSnapshot(ctx context.Context, snap *world.Snapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Full replace: maps cascade to grids and chunks.
	if _, err := tx.Exec(ctx, `DELETE FROM maps`); err != nil {
		return fmt.Errorf("snapshot clear: %w", err)
	}

	for _, ms := range snap.Maps {
		if _, err := tx.Exec(ctx,
			`INSERT INTO maps (map_id, created_tick) VALUES ($1, $2)`,
			int64(ms.ID), int64(ms.CreatedTick),
		); err != nil {
			return fmt.Errorf("snapshot map %d: %w", ms.ID, err)
		}
	}

	for _, gs := range snap.Grids {
		if _, err := tx.Exec(ctx,
			`INSERT INTO grids (grid_id, map_id, chunk_size) VALUES ($1, $2, $3)`,
			int64(gs.ID), int64(gs.MapID), gs.ChunkSize,
		); err != nil {
			return fmt.Errorf("snapshot grid %d: %w", gs.ID, err)
		}
		for _, cs := range gs.Chunks {
			blob, err := msgpack.Marshal(cs.Cells)
			if err != nil {
				return fmt.Errorf("encode chunk (%d,%d) of grid %d: %w", cs.X, cs.Y, gs.ID, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO grid_chunks (grid_id, cx, cy, cells) VALUES ($1, $2, $3, $4)`,
				int64(gs.ID), cs.X, cs.Y, blob,
			); err != nil {
				return fmt.Errorf("snapshot chunk (%d,%d) of grid %d: %w", cs.X, cs.Y, gs.ID, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// LoadSnapshot reads the stored world state, or an empty snapshot when the
// database holds none.
func (r *SnapshotRepo) LoadSnapshot(ctx context.Context) (*world.Snapshot, error) {
	snap := &world.Snapshot{}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT map_id, created_tick FROM maps ORDER BY map_id`)
	if err != nil {
		return nil, fmt.Errorf("load maps: %w", err)
	}
	for rows.Next() {
		var id, tick int64
		if err := rows.Scan(&id, &tick); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan map: %w", err)
		}
		snap.Maps = append(snap.Maps, world.MapSnapshot{
			ID:          world.MapID(id),
			CreatedTick: uint64(tick),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load maps: %w", err)
	}

	gridRows, err := r.db.Pool.Query(ctx,
		`SELECT grid_id, map_id, chunk_size FROM grids ORDER BY grid_id`)
	if err != nil {
		return nil, fmt.Errorf("load grids: %w", err)
	}
	for gridRows.Next() {
		var id, mapID int64
		var size int
		if err := gridRows.Scan(&id, &mapID, &size); err != nil {
			gridRows.Close()
			return nil, fmt.Errorf("scan grid: %w", err)
		}
		snap.Grids = append(snap.Grids, world.GridSnapshot{
			ID:        world.GridID(id),
			MapID:     world.MapID(mapID),
			ChunkSize: size,
		})
	}
	gridRows.Close()
	if err := gridRows.Err(); err != nil {
		return nil, fmt.Errorf("load grids: %w", err)
	}
	// Chunks attach by index into the finished slice; a pointer taken while
	// the grid loop is still appending would go stale on reallocation.
	byIdx := gridIndex(snap)

	chunkRows, err := r.db.Pool.Query(ctx,
		`SELECT grid_id, cx, cy, cells FROM grid_chunks`)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer chunkRows.Close()
	for chunkRows.Next() {
		var gridID int64
		var cx, cy int
		var blob []byte
		if err := chunkRows.Scan(&gridID, &cx, &cy, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		i, ok := byIdx[world.GridID(gridID)]
		if !ok {
			continue // chunk of a grid row we never saw; skip
		}
		var cells []world.Tile
		if err := msgpack.Unmarshal(blob, &cells); err != nil {
			return nil, fmt.Errorf("decode chunk (%d,%d) of grid %d: %w", cx, cy, gridID, err)
		}
		snap.Grids[i].Chunks = append(snap.Grids[i].Chunks, world.ChunkSnapshot{X: cx, Y: cy, Cells: cells})
	}
	if err := chunkRows.Err(); err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	return snap, nil
}

// gridIndex maps grid IDs to their positions in snap.Grids.
func gridIndex(snap *world.Snapshot) map[world.GridID]int {
	idx := make(map[world.GridID]int, len(snap.Grids))
	for i, gs := range snap.Grids {
		idx[gs.ID] = i
	}
	return idx
}
