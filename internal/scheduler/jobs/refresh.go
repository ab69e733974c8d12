package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/ingest"
	"github.com/wonny/africa-covid/backend/internal/scheduler"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// Refresher runs one ingestion (implemented by ingest.Pipeline)
type Refresher interface {
	Run(ctx context.Context) (*ingest.Report, error)
}

// RefreshJob rebuilds and publishes the snapshot on a schedule
type RefreshJob struct {
	refresher Refresher
	schedule  string
	timeout   time.Duration
	logger    *logger.Logger
}

// NewRefreshJob creates a new refresh job
func NewRefreshJob(refresher Refresher, schedule string, timeout time.Duration, log *logger.Logger) *RefreshJob {
	return &RefreshJob{
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
		logger:    log.Module("jobs"),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "snapshot_refresh"
}

// Schedule returns the configured cron schedule
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// Run executes one refresh. A refresh already in flight (manual or startup) is a skip.
func (j *RefreshJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	report, err := j.refresher.Run(ctx)
	if errors.Is(err, contracts.ErrRefreshInProgress) {
		return fmt.Errorf("%w: %w", scheduler.ErrSkip, err)
	}
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"generation": report.Generation,
		"countries":  report.Countries,
		"unresolved": report.UnresolvedCount(),
	}).Info("Scheduled refresh completed")
	return nil
}
