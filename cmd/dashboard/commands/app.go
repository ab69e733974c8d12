package commands

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/wonny/africa-covid/backend/internal/archive"
	"github.com/wonny/africa-covid/backend/internal/geo"
	"github.com/wonny/africa-covid/backend/internal/ingest"
	"github.com/wonny/africa-covid/backend/internal/metrics"
	"github.com/wonny/africa-covid/backend/internal/query"
	"github.com/wonny/africa-covid/backend/internal/snapshot"
	"github.com/wonny/africa-covid/backend/internal/sources"
	"github.com/wonny/africa-covid/backend/pkg/config"
	"github.com/wonny/africa-covid/backend/pkg/database"
	"github.com/wonny/africa-covid/backend/pkg/httputil"
	"github.com/wonny/africa-covid/backend/pkg/logger"
	"github.com/wonny/africa-covid/backend/pkg/redis"
)

// app holds the components shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	resolver *geo.Resolver
	store    *snapshot.Store
	service  *query.Service
	pipeline *ingest.Pipeline

	// optional
	db      *database.DB
	archive *archive.Repository
	redis   *redis.Client
}

// appOptions selects the optional backends a command needs
type appOptions struct {
	archive bool // connect Postgres when DATABASE_URL is set
	cache   bool // build the aggregate cache (memory or redis)
}

// newApp wires config -> store -> service -> pipeline
// ⭐ SSOT: 컴포넌트 조립은 여기서만
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, opts appOptions) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		resolver: geo.Default(),
		store:    snapshot.New(clockwork.NewRealClock(), log),
	}

	if path := cfg.Sources.CountryTablePath; path != "" {
		resolver, hash, err := geo.LoadFile(path)
		if err != nil {
			return nil, err
		}
		a.resolver = resolver
		log.WithFields(map[string]interface{}{
			"path": path,
			"hash": hash,
		}).Info("Loaded country table")
	}

	a.store.Subscribe(func(snap *snapshot.Snapshot) {
		metrics.ObserveSnapshot(snap.Generation, len(snap.Countries), snap.LoadedAt)
	})

	var cache query.Cache
	if opts.cache {
		switch cfg.Cache.Backend {
		case "redis":
			client, err := redis.New(cfg)
			if err != nil {
				return nil, fmt.Errorf("connect to redis: %w", err)
			}
			a.redis = client
			cache = query.NewRedisCache(client, cfg.Cache.TTL, log)
			log.WithField("addr", client.Addr()).Info("Using redis aggregate cache")
		default:
			cache = query.NewMemoryCache(cfg.Cache.TTL)
		}
	}
	a.service = query.NewService(a.store, a.resolver, cache, cfg.Ingest.TrackedContinents, log)

	loader := sources.NewLoader(httputil.New(cfg, log), log).
		WithRetry(cfg.Ingest.MaxRetries, cfg.Ingest.RetryInitialDelay, cfg.Ingest.RetryMaxDelay)
	normalizer := ingest.NewNormalizer(a.resolver, cfg.Ingest.TrackedContinents, log)
	a.pipeline = ingest.NewPipeline(cfg, loader, normalizer, a.store, log)

	if opts.archive && cfg.Database.ArchiveEnabled() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.archive = archive.NewRepository(db.Pool)
		if err := a.archive.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.pipeline.WithArchive(a.archive)
		log.Info("Snapshot archive enabled")
	}

	return a, nil
}

// warmStart publishes the newest archived snapshot so queries work before the first ingestion
func (a *app) warmStart(ctx context.Context) bool {
	if a.archive == nil {
		return false
	}

	rec, err := a.archive.LoadLatest(ctx)
	if err != nil {
		a.log.WithError(err).Info("No archived snapshot for warm start")
		return false
	}

	snap := a.store.Publish(rec.Data)
	a.log.WithFields(map[string]interface{}{
		"archived_generation": rec.Generation,
		"archived_at":         rec.LoadedAt,
		"generation":          snap.Generation,
		"countries":           len(snap.Countries),
	}).Info("Warm start from archive")
	return true
}

// Close releases the pool, database and redis connections
func (a *app) Close() {
	if a.pipeline != nil {
		a.pipeline.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
}
