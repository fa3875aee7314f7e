package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed int32
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&processed, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job", Type: "timetable.generate"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}

func TestQueueRetriesThenReportsExhaustion(t *testing.T) {
	var attempts int32
	exhausted := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries:  2,
		RetryDelay:  5 * time.Millisecond,
		OnExhausted: func(job Job, err error) { exhausted <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	select {
	case job := <-exhausted:
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("exhaustion not reported")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}

func TestQueueFullBuffer(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	q := NewQueue("busy", func(ctx context.Context, job Job) error {
		once.Do(func() { close(started) })
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(block)

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	assert.Equal(t, 1, q.Pending())
	assert.ErrorIs(t, q.Enqueue(Job{ID: "c"}), ErrQueueFull)
}

func TestFanoutRunsEveryIndex(t *testing.T) {
	seen := make([]int32, 10)
	err := Fanout(context.Background(), 3, len(seen), func(ctx context.Context, i int) error {
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	require.NoError(t, err)
	for i, count := range seen {
		assert.Equal(t, int32(1), count, "index %d", i)
	}
}

func TestFanoutReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := Fanout(context.Background(), 2, 5, func(ctx context.Context, i int) error {
		if i == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestFanoutNoWork(t *testing.T) {
	assert.NoError(t, Fanout(context.Background(), 4, 0, func(ctx context.Context, i int) error {
		return errors.New("unreachable")
	}))
}

func TestQueueSentinelErrors(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "x"}), ErrQueueStopped)

	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{ID: "y"}), ErrQueueStopped)
}

func TestQueueBackoffDoublesUpToCap(t *testing.T) {
	q := NewQueue("backoff", nil, QueueConfig{RetryDelay: 100 * time.Millisecond, MaxRetryDelay: time.Second})

	assert.Equal(t, 100*time.Millisecond, q.backoff(1))
	assert.Equal(t, 200*time.Millisecond, q.backoff(2))
	assert.Equal(t, 800*time.Millisecond, q.backoff(4))
	assert.Equal(t, time.Second, q.backoff(5))
	assert.Equal(t, time.Second, q.backoff(12))
}

func TestQueueRecoversPanickingHandler(t *testing.T) {
	exhausted := make(chan error, 1)
	q := NewQueue("panicky", func(ctx context.Context, job Job) error {
		panic("engine exploded")
	}, QueueConfig{MaxRetries: -1, OnExhausted: func(job Job, err error) { exhausted <- err }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "p"}))
	select {
	case err := <-exhausted:
		assert.Contains(t, err.Error(), "engine exploded")
	case <-time.After(2 * time.Second):
		t.Fatal("panic not reported")
	}
}

func TestQueueAppliesJobTimeout(t *testing.T) {
	exhausted := make(chan error, 1)
	q := NewQueue("slow", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{JobTimeout: 10 * time.Millisecond, OnExhausted: func(job Job, err error) { exhausted <- err }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "s"}))
	select {
	case err := <-exhausted:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout not applied")
	}
}
