package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argie33/algo-sub006/internal/logger"
)

func TestAddRejectsDuplicateName(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.Add("tick", "@every 1s", func() error { return nil }))
	assert.Error(t, s.Add("tick", "@every 1s", func() error { return nil }))
}

func TestAddRejectsInvalidSchedule(t *testing.T) {
	s := New(logger.NewNop())
	assert.Error(t, s.Add("bad", "not a schedule", func() error { return nil }))
}

func TestTasksSnapshot(t *testing.T) {
	s := New(logger.NewNop())
	require.NoError(t, s.Add("tick", "@every 1s", func() error { return nil }))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "tick", tasks[0].Name)
	assert.Equal(t, "@every 1s", tasks[0].Schedule)
	assert.Equal(t, TaskStatusPending, tasks[0].Status)
}

func TestScheduledTaskRuns(t *testing.T) {
	s := New(logger.NewNop())

	var runs atomic.Int64
	require.NoError(t, s.Add("tick", "@every 1s", func() error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer s.Stop()

	deadline := time.After(5 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("task never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}

	// wait for status to settle after fn returned
	time.Sleep(50 * time.Millisecond)
	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskStatusCompleted, tasks[0].Status)
	assert.False(t, tasks[0].LastRunTime.IsZero())
}

func TestFailedTaskRecordsError(t *testing.T) {
	s := New(logger.NewNop())

	var runs atomic.Int64
	require.NoError(t, s.Add("flaky", "@every 1s", func() error {
		runs.Add(1)
		return errors.New("boom")
	}))

	s.Start()
	defer s.Stop()

	deadline := time.After(5 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("task never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}

	// wait for status to settle after fn returned
	time.Sleep(50 * time.Millisecond)
	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskStatusFailed, tasks[0].Status)
	assert.Equal(t, "boom", tasks[0].Error)
}
