package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// Pruner deletes old archived snapshots (implemented by archive.Repository)
type Pruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// ArchivePruneJob keeps the snapshot archive bounded
type ArchivePruneJob struct {
	pruner Pruner
	keep   int
	logger *logger.Logger
}

// NewArchivePruneJob creates a new archive prune job
func NewArchivePruneJob(pruner Pruner, keep int, log *logger.Logger) *ArchivePruneJob {
	return &ArchivePruneJob{
		pruner: pruner,
		keep:   keep,
		logger: log.Module("jobs"),
	}
}

// Name returns the job name
func (j *ArchivePruneJob) Name() string {
	return "archive_prune"
}

// Schedule returns the cron schedule (daily at 03:30)
func (j *ArchivePruneJob) Schedule() string {
	return "0 30 3 * * *"
}

// Run deletes everything but the newest keep snapshots
func (j *ArchivePruneJob) Run(ctx context.Context) error {
	removed, err := j.pruner.Prune(ctx, j.keep)
	if err != nil {
		return fmt.Errorf("prune archive: %w", err)
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"kept":    j.keep,
		}).Info("Archive pruned")
	}
	return nil
}
