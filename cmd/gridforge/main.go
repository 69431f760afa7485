package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridforge/server/internal/config"
	"github.com/gridforge/server/internal/core/event"
	coresys "github.com/gridforge/server/internal/core/system"
	"github.com/gridforge/server/internal/data"
	gfnet "github.com/gridforge/server/internal/net"
	"github.com/gridforge/server/internal/persist"
	"github.com/gridforge/server/internal/scripting"
	"github.com/gridforge/server/internal/system"
	"github.com/gridforge/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("GRIDFORGE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Info("starting", zap.String("server", cfg.Server.Name))

	// 3. Connect to PostgreSQL and run migrations
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("database ready")

	// 4. Load tile prototypes
	tiles, err := data.LoadTileTable(cfg.World.TileListPath)
	if err != nil {
		return fmt.Errorf("load tile table: %w", err)
	}
	log.Info("tile prototypes loaded", zap.Int("count", tiles.Count()))

	// 5. Build the registry stack
	bus := event.NewBus()
	clock := system.NewSimClock()
	entities := world.NewEntityManager(log)
	mgr := world.NewManager(entities, bus, tiles, clock, log)
	mgr.SetDefaultChunkSize(cfg.World.DefaultChunkSize)

	// 5a. Observer endpoint subscribes before any world state is restored
	// so reconnecting viewers never miss structural events mid-boot.
	observer := gfnet.NewObserver(cfg.Network.ObserverBind, bus, log)
	observer.Start()
	log.Info("observer listening", zap.String("bind", cfg.Network.ObserverBind))

	// 5b. Restore the previous world snapshot
	snapRepo := persist.NewSnapshotRepo(db)
	snap, err := snapRepo.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := mgr.RestoreSnapshot(snap); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	log.Info("world restored",
		zap.Int("maps", len(snap.Maps)),
		zap.Int("grids", len(snap.Grids)))

	// 6. Lua scripting engine (world bootstrap + gameplay hooks)
	luaEngine, err := scripting.NewEngine(cfg.World.ScriptsDir, mgr, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	log.Info("scripts loaded")

	// 7. Tick systems
	runner := coresys.NewRunner()
	broadphase := system.NewBroadphaseSystem(mgr, log)
	persistence := system.NewPersistenceSystem(mgr, snapRepo, cfg.World.AutosaveTicks, log)
	runner.Register(broadphase)
	runner.Register(persistence)
	runner.Register(system.NewCleanupSystem(entities))

	// 8. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()
	log.Info("simulation loop started", zap.Duration("tick", cfg.Network.TickRate))

	for {
		select {
		case <-ticker.C:
			clock.Advance()
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			persistence.Flush()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			observer.Shutdown(shutdownCtx)
			cancelShutdown()
			log.Info("stopped")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
