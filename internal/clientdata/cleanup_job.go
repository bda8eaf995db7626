package clientdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob sweeps expired units out of the content cache.
// It should be scheduled to run daily.
type CleanupJob struct {
	cache   *Cache
	timeout time.Duration
	log     zerolog.Logger
}

// NewCleanupJob creates a new content cache cleanup job.
func NewCleanupJob(cache *Cache, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		cache:   cache,
		timeout: 10 * time.Minute,
		log:     log.With().Str("job", "content_cache_cleanup").Logger(),
	}
}

// Run executes the sweep.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.RunContext(ctx)
	return err
}

// RunContext executes the sweep under ctx and returns the number of purged units.
func (j *CleanupJob) RunContext(ctx context.Context) (int, error) {
	purged, err := j.cache.Sweep(ctx)
	if err != nil {
		j.log.Error().Err(err).Int("purged", purged).Msg("Failed to sweep content cache")
		return purged, err
	}

	if purged > 0 {
		j.log.Info().Int("purged", purged).Msg("Content cache cleanup completed")
	}
	return purged, nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "content_cache_cleanup"
}
