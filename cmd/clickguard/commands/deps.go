package commands

import (
	"fmt"

	"github.com/dgozlan/clickguard/internal/collector"
	"github.com/dgozlan/clickguard/internal/features"
	"github.com/dgozlan/clickguard/internal/store"
	"github.com/dgozlan/clickguard/pkg/config"
	"github.com/dgozlan/clickguard/pkg/database"
	"github.com/dgozlan/clickguard/pkg/httputil"
	"github.com/dgozlan/clickguard/pkg/logger"
	"github.com/dgozlan/clickguard/pkg/redis"
)

// deps holds the wired application dependencies shared by commands.
type deps struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	rdb    *redis.Client
	clicks *store.ClickRepository
	perf   *store.PerformanceRepository
	sigs   *store.SignalRepository
}

// initDeps loads config and connects to the backing services.
func initDeps() (*deps, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to Redis (no-op client when disabled)
	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &deps{
		cfg:    cfg,
		log:    log,
		db:     db,
		rdb:    rdb,
		clicks: store.NewClickRepository(db.Pool),
		perf:   store.NewPerformanceRepository(db.Pool),
		sigs:   store.NewSignalRepository(db.Pool),
	}, nil
}

// close releases the backing connections.
func (d *deps) close() {
	if d.rdb != nil {
		d.rdb.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// newBuilder wires the signal pipeline builder.
func (d *deps) newBuilder() *features.Builder {
	lock := redis.NewRunLock(d.rdb, "clickguard")
	return features.NewBuilder(d.clicks, d.perf, d.sigs, lock, d.cfg.Pipeline.RunLockTTL, d.log)
}

// newCollector wires the performance collector.
func (d *deps) newCollector() *collector.Collector {
	limiter := redis.NewRateLimiter(d.rdb, "clickguard")
	httpClient := httputil.New(d.log).WithRateLimiter(limiter, redis.AdPlatformRateLimit)
	client := collector.NewClient(d.cfg, httpClient, d.log)
	return collector.NewCollector(client, d.perf, d.log)
}
