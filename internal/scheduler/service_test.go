package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingJob(counter *int32) cron.Job {
	return cron.FuncJob(func() { atomic.AddInt32(counter, 1) })
}

func TestService_AddJob(t *testing.T) {
	s := NewService(logger.Mock())

	var runs int32
	id, err := s.AddJob(countingJob(&runs), time.Minute, "probe")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.AddJob(countingJob(&runs), time.Minute, "probe")
	assert.Error(t, err, "duplicate identifiers are rejected")

	_, err = s.AddJob(countingJob(&runs), 0, "zero")
	assert.Error(t, err)

	_, err = s.AddJobWithSpec(countingJob(&runs), "not a spec", "bad-spec")
	assert.Error(t, err)

	_, err = s.AddJobWithSpec(countingJob(&runs), "0 3 * * *", "nightly")
	assert.NoError(t, err)
}

func TestService_GetNextRun(t *testing.T) {
	s := NewService(logger.Mock())
	s.Start()
	defer s.Stop()

	var runs int32
	_, err := s.AddJob(countingJob(&runs), time.Hour, "hourly")
	require.NoError(t, err)

	next, err := s.GetNextRun("hourly")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, 5*time.Second)

	next, err = s.GetNextRun("unknown")
	require.NoError(t, err)
	assert.True(t, next.IsZero())
}

func TestService_RunsJobs(t *testing.T) {
	s := NewService(logger.Mock())

	var runs int32
	_, err := s.AddJob(countingJob(&runs), time.Second, "every-second")
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) > 0
	}, 3*time.Second, 50*time.Millisecond)
}
