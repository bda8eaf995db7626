package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/dividends/internal/database"
	testingpkg "github.com/aristath/dividends/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	fails bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.fails {
		return errors.New("boom")
	}
	return nil
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{name: "x"})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunsRegisteredJobs(t *testing.T) {
	s := New(zerolog.Nop())
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", fails: true}

	require.NoError(t, s.AddJob("* * * * * *", ok))
	require.NoError(t, s.AddJob("* * * * * *", failing))

	s.Start()
	assert.Eventually(t, func() bool {
		return ok.runs.Load() > 0 && failing.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
	s.Stop()

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "ok", jobs[0].Name)
	assert.Equal(t, "* * * * * *", jobs[0].Schedule)
	assert.Equal(t, "failing", jobs[1].Name)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "now"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())

	assert.Error(t, s.RunNow(&countingJob{name: "bad", fails: true}))
}

func TestDatabaseCheckJob_Name(t *testing.T) {
	assert.Equal(t, "database_check", NewDatabaseCheckJob(zerolog.Nop()).Name())
}

func TestDatabaseCheckJob_Run_NoDatabases(t *testing.T) {
	job := NewDatabaseCheckJob(zerolog.Nop(), nil)
	assert.NoError(t, job.Run()) // Should handle nil databases gracefully
}

func TestDatabaseCheckJob_Run(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "lookup_cache")
	defer cleanup()

	job := NewDatabaseCheckJob(zerolog.Nop(), db)
	assert.NoError(t, job.Run())
}

func TestDatabaseCheckJob_Run_ClosedDatabase(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "lookup_cache")
	cleanup()

	job := NewDatabaseCheckJob(zerolog.Nop(), []*database.DB{db}...)
	assert.Error(t, job.Run())
}
