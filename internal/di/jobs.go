package di

import (
	"fmt"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/aristath/dividends/internal/lookupcache"
	"github.com/aristath/dividends/internal/scheduler"
	"github.com/rs/zerolog"
)

// DatabaseCheckSchedule runs the SQLite integrity and WAL check hourly.
const DatabaseCheckSchedule = "0 30 * * * *"

// JobInstances holds the background jobs. LookupCacheCleanup and
// DatabaseCheck are nil unless the sqlite lookup backend is active.
type JobInstances struct {
	ContentCacheCleanup *clientdata.CleanupJob
	LookupCacheCleanup  *lookupcache.CleanupJob
	DatabaseCheck       *scheduler.DatabaseCheckJob
}

// RegisterJobs creates the background jobs for the container.
func RegisterJobs(container *Container, log zerolog.Logger) *JobInstances {
	jobs := &JobInstances{
		ContentCacheCleanup: clientdata.NewCleanupJob(container.ContentCache, log),
	}
	if container.SQLiteLookupStore != nil {
		jobs.LookupCacheCleanup = lookupcache.NewCleanupJob(container.SQLiteLookupStore, log)
	}
	if container.LookupDB != nil {
		jobs.DatabaseCheck = scheduler.NewDatabaseCheckJob(log, container.LookupDB)
	}
	return jobs
}

// Schedule adds every non-nil job to s. Cache cleanups run on cleanupSchedule.
func (j *JobInstances) Schedule(s *scheduler.Scheduler, cleanupSchedule string) error {
	if err := s.AddJob(cleanupSchedule, j.ContentCacheCleanup); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", j.ContentCacheCleanup.Name(), err)
	}
	if j.LookupCacheCleanup != nil {
		if err := s.AddJob(cleanupSchedule, j.LookupCacheCleanup); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.LookupCacheCleanup.Name(), err)
		}
	}
	if j.DatabaseCheck != nil {
		if err := s.AddJob(DatabaseCheckSchedule, j.DatabaseCheck); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.DatabaseCheck.Name(), err)
		}
	}
	return nil
}
