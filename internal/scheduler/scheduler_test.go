package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgozlan/clickguard/pkg/config"
	"github.com/dgozlan/clickguard/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	runs     atomic.Int64
	err      error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(_ context.Context) error {
	j.runs.Add(1)
	return j.err
}

func testScheduler() *Scheduler {
	s := New(logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "console"}))
	s.maxRetries = 1
	s.retryDelay = time.Millisecond
	return s
}

func TestScheduler_AddJob(t *testing.T) {
	s := testScheduler()
	job := &stubJob{name: "signal_run", schedule: "0 30 2 * * *"}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate names rejected")
	assert.Equal(t, []string{"signal_run"}, s.ListJobs())
}

func TestScheduler_AddJobBadSchedule(t *testing.T) {
	s := testScheduler()
	assert.Error(t, s.AddJob(&stubJob{name: "broken", schedule: "not a cron expr"}))
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := testScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "signal_run", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("signal_run"))
	assert.Empty(t, s.ListJobs())
	assert.Error(t, s.RemoveJob("signal_run"))
	assert.Error(t, s.RunJob("signal_run"))
}

func TestScheduler_RunJobRecordsHistory(t *testing.T) {
	s := testScheduler()
	job := &stubJob{name: "signal_run", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("signal_run"))

	require.Eventually(t, func() bool {
		history, err := s.GetJobHistory("signal_run")
		return err == nil && len(history.Results) == 1
	}, time.Second, 5*time.Millisecond)

	history, err := s.GetJobHistory("signal_run")
	require.NoError(t, err)
	latest := history.Latest()
	require.NotNil(t, latest)
	assert.True(t, latest.Success)
	assert.Equal(t, int64(1), job.runs.Load())
}

func TestScheduler_RunJobRetriesOnFailure(t *testing.T) {
	s := testScheduler()
	job := &stubJob{name: "flaky", schedule: "@daily", err: errors.New("boom")}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("flaky"))

	require.Eventually(t, func() bool {
		history, err := s.GetJobHistory("flaky")
		return err == nil && len(history.Results) == 1
	}, time.Second, 5*time.Millisecond)

	// maxRetries of 1 means two attempts total.
	assert.Equal(t, int64(2), job.runs.Load())

	history, _ := s.GetJobHistory("flaky")
	latest := history.Latest()
	require.NotNil(t, latest)
	assert.False(t, latest.Success)
	assert.Contains(t, latest.Error, "boom")

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Zero(t, stats.SuccessRate)
	require.NotNil(t, stats.LastFailure)
}

func TestJobHistory_Trim(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.AddResult(JobResult{JobName: "j", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
}
