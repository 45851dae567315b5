package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingTask struct {
	calls atomic.Int32
	count int64
	err   error
}

func (c *countingTask) run(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return c.count, c.err
}

func TestCleanupJob_RunsAllTasks(t *testing.T) {
	limiter := &countingTask{count: 3}
	failing := &countingTask{err: errors.New("boom")}
	idle := &countingTask{}

	job := NewCleanupJob(time.Hour,
		Task{Name: "rate limit windows", Run: limiter.run},
		Task{Name: "broken", Run: failing.run},
		Task{Name: "key failures", Run: idle.run},
	)
	job.cleanup()

	assert.Equal(t, int32(1), limiter.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load(), "a failing task does not stop the others")
	assert.Equal(t, int32(1), idle.calls.Load())
}

func TestCleanupJob_StartStop(t *testing.T) {
	task := &countingTask{}
	job := NewCleanupJob(10*time.Millisecond, Task{Name: "windows", Run: task.run})

	job.Start()
	assert.Eventually(t, func() bool {
		return task.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	job.Stop()

	stopped := task.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, task.calls.Load(), stopped+1)
}

func TestCleanupJob_NoTasks(t *testing.T) {
	job := NewCleanupJob(time.Hour)
	assert.NotPanics(t, job.cleanup)
}
