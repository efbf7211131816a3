// Package jobs runs the deduplication engine on a schedule. A single job
// loop serializes runs, which is the concurrency guarantee the engine
// requires: two overlapping runs could resolve the same record to different
// roots.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/seawatch/seawatch/internal/dedup"
)

// DedupJob periodically runs cross-source deduplication
type DedupJob struct {
	service  *dedup.Service
	opts     dedup.Options
	interval time.Duration
	logger   zerolog.Logger
}

// NewDedupJob creates a job running service with opts every interval
func NewDedupJob(service *dedup.Service, opts dedup.Options, interval time.Duration, logger zerolog.Logger) *DedupJob {
	return &DedupJob{
		service:  service,
		opts:     opts,
		interval: interval,
		logger:   logger,
	}
}

// Run executes one deduplication pass
func (j *DedupJob) Run(ctx context.Context) (*dedup.RunResult, error) {
	return j.service.Run(ctx, j.opts)
}

// Start begins periodic deduplication runs and blocks until stop closes
func (j *DedupJob) Start(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result, err := j.Run(ctx)
			switch {
			case errors.Is(err, dedup.ErrDownstreamTrigger):
				// Merges are committed; only the rescan signal was lost.
				j.logger.Error().Err(err).
					Int("merges", result.MergesPerformed).
					Msg("dedup run merged records but failed to signal downstream job")
			case err != nil:
				j.logger.Error().Err(err).Msg("dedup run failed")
			case result.MergesPerformed > 0:
				j.logger.Info().
					Int("merges", result.MergesPerformed).
					Int("records", result.RecordsAnalyzed).
					Msg("dedup run performed merges")
			default:
				j.logger.Debug().
					Int("records", result.RecordsAnalyzed).
					Msg("dedup run found nothing to merge")
			}

		case <-stop:
			j.logger.Info().Msg("dedup job stopped")
			return
		}
	}
}
