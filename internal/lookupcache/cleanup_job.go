package lookupcache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes expired rows from the SQLite lookup cache.
type CleanupJob struct {
	store *SQLiteStore
	log   zerolog.Logger
}

// NewCleanupJob creates a new lookup cache cleanup job.
func NewCleanupJob(store *SQLiteStore, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		store: store,
		log:   log.With().Str("job", "lookup_cache_cleanup").Logger(),
	}
}

func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := j.store.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired lookup cache entries")
		return err
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired lookup cache entries")
	}
	return nil
}

func (j *CleanupJob) Name() string {
	return "lookup_cache_cleanup"
}
