package ingest

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/wonny/africa-covid/backend/internal/metrics"
	"github.com/wonny/africa-covid/backend/internal/snapshot"
	"github.com/wonny/africa-covid/backend/internal/sources"
	"github.com/wonny/africa-covid/backend/pkg/config"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// TableLoader loads one source (implemented by sources.Loader)
type TableLoader interface {
	Load(ctx context.Context, name, location string) (*sources.Table, error)
}

// Archiver persists published snapshots (implemented by archive.Repository)
type Archiver interface {
	Save(ctx context.Context, snap *snapshot.Snapshot) error
}

// Pipeline runs one ingestion: concurrent source loads, normalization, publish.
// ⭐ SSOT: 스냅샷 생성은 Pipeline.Run 에서만
type Pipeline struct {
	sources    config.SourcesConfig
	cfg        config.IngestConfig
	loader     TableLoader
	normalizer *Normalizer
	store      *snapshot.Store
	archive    Archiver
	pool       pond.ResultPool[loadedTable]
	logger     *logger.Logger
}

type sourceSpec struct {
	name     string
	location string
	required bool
}

type loadedTable struct {
	name  string
	table *sources.Table
	err   error
}

// NewPipeline creates a pipeline publishing into store
func NewPipeline(cfg *config.Config, loader TableLoader, normalizer *Normalizer, store *snapshot.Store, log *logger.Logger) *Pipeline {
	workers := cfg.Ingest.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		sources:    cfg.Sources,
		cfg:        cfg.Ingest,
		loader:     loader,
		normalizer: normalizer,
		store:      store,
		pool:       pond.NewResultPool[loadedTable](workers),
		logger:     log.Module("ingest"),
	}
}

// WithArchive saves every published snapshot to a
func (p *Pipeline) WithArchive(a Archiver) *Pipeline {
	p.archive = a
	return p
}

// Close stops the worker pool
func (p *Pipeline) Close() {
	p.pool.StopAndWait()
}

// Run builds and publishes a new snapshot.
// On failure the published snapshot stays live. Concurrent runs get ErrRefreshInProgress.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if err := p.store.BeginRefresh(); err != nil {
		return nil, err
	}

	start := time.Now()
	if p.cfg.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RefreshTimeout)
		defer cancel()
	}

	result, report, err := p.safeBuild(ctx)
	if err != nil {
		p.store.Fail(err)
		metrics.RefreshRuns.WithLabelValues("failed").Inc()
		metrics.RefreshDuration.Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("refresh snapshot: %w", err)
	}

	snap := p.store.Publish(snapshot.Data{
		Countries:   result.Countries,
		Trends:      result.Trends,
		Predictions: result.Predictions,
		Stats:       result.Stats,
		Source:      "ingest",
	})

	report.Generation = snap.Generation
	report.Duration = time.Since(start)

	metrics.RefreshRuns.WithLabelValues("success").Inc()
	metrics.RefreshDuration.Observe(report.Duration.Seconds())

	if p.archive != nil {
		if err := p.archive.Save(ctx, snap); err != nil {
			p.logger.WithError(err).WithField("generation", snap.Generation).Warn("Failed to archive snapshot")
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"generation": snap.Generation,
		"countries":  report.Countries,
		"unresolved": report.UnresolvedCount(),
		"duration":   report.Duration,
	}).Info("Refresh completed")

	return report, nil
}

// safeBuild turns a panic in Build into an error so the writer side is released
func (p *Pipeline) safeBuild(ctx context.Context) (result *Result, report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(map[string]interface{}{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Panic during snapshot build")
			result, report = nil, nil
			err = fmt.Errorf("build snapshot: panic: %v", r)
		}
	}()
	return p.Build(ctx)
}

// Build loads and normalizes the sources without publishing
func (p *Pipeline) Build(ctx context.Context) (*Result, *Report, error) {
	tables, skipped, err := p.loadAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	result, report, err := p.normalizer.Normalize(Inputs{
		Confirmed:  tables[SourceConfirmed],
		Deaths:     tables[SourceDeaths],
		Recovered:  tables[SourceRecovered],
		Covariates: tables[SourceCovariates],
		Population: tables[SourcePopulation],
		Forecast:   tables[SourceForecast],
	})
	if err != nil {
		return nil, nil, err
	}
	report.SkippedSources = append(report.SkippedSources, skipped...)
	report.sortLists()

	return result, report, nil
}

func (p *Pipeline) specs() []sourceSpec {
	return []sourceSpec{
		{SourceConfirmed, p.sources.ConfirmedURL, true},
		{SourceDeaths, p.sources.DeathsURL, true},
		{SourceRecovered, p.sources.RecoveredURL, true},
		{SourceCovariates, p.sources.CovariatesPath, false},
		{SourcePopulation, p.sources.PopulationPath, false},
		{SourceForecast, p.sources.ForecastPath, false},
	}
}

// loadAll fetches every source concurrently.
// A failed required source fails the run; a failed optional one is skipped.
func (p *Pipeline) loadAll(ctx context.Context) (map[string]*sources.Table, []string, error) {
	specs := p.specs()
	group := p.pool.NewGroupContext(ctx)

	for _, spec := range specs {
		if spec.location == "" && !spec.required {
			continue
		}
		group.SubmitErr(func() (loadedTable, error) {
			fetchCtx := ctx
			if p.cfg.FetchTimeout > 0 {
				var cancel context.CancelFunc
				// retries share the per-source budget
				fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.FetchTimeout*time.Duration(p.cfg.MaxRetries+1))
				defer cancel()
			}

			table, err := p.loader.Load(fetchCtx, spec.name, spec.location)
			if err != nil {
				metrics.SourceFetches.WithLabelValues(spec.name, "failed").Inc()
				if spec.required {
					return loadedTable{}, err
				}
				p.logger.WithError(err).WithField("source", spec.name).Warn("Optional source skipped")
				return loadedTable{name: spec.name, err: err}, nil
			}
			metrics.SourceFetches.WithLabelValues(spec.name, "success").Inc()
			return loadedTable{name: spec.name, table: table}, nil
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, nil, fmt.Errorf("load sources: %w", err)
	}

	tables := make(map[string]*sources.Table, len(results))
	var skipped []string
	for _, r := range results {
		if r.err != nil {
			skipped = append(skipped, r.name)
			continue
		}
		tables[r.name] = r.table
	}
	return tables, skipped, nil
}
