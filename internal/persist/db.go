package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/gridforge/server/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB is the PostgreSQL handle behind world snapshot storage. One pool is
// shared by the migration runner and the snapshot repository.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	// Fail at boot, not at the first autosave.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
