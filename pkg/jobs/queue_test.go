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

func TestQueueProcessesTasks(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 3)

	q := New("test", func(_ context.Context, s string) error {
		mu.Lock()
		seen[s] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, Config{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(s, s))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestQueueRetriesThenDrops(t *testing.T) {
	var calls int32
	dropped := make(chan string, 1)

	q := New("retry", func(context.Context, int) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, Config{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		OnDrop:     func(id string, _ error) { dropped <- id },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue("task-1", 1))

	select {
	case id := <-dropped:
		assert.Equal(t, "task-1", id)
	case <-time.After(time.Second):
		t.Fatal("task was never dropped")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := New("idle", func(context.Context, int) error { return nil }, Config{})
	err := q.Enqueue("x", 1)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestStopDropsBufferedAndFailingTasks(t *testing.T) {
	started := make(chan struct{})
	var calls int32
	var mu sync.Mutex
	dropped := map[string]error{}

	q := New("shutdown", func(ctx context.Context, s string) error {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, Config{
		Workers:    1,
		BufferSize: 4,
		MaxRetries: 3,
		RetryDelay: time.Hour,
		OnDrop: func(id string, err error) {
			mu.Lock()
			dropped[id] = err
			mu.Unlock()
		},
	})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue("blocking", "blocking"))
	<-started
	require.NoError(t, q.Enqueue("queued-1", "queued-1"))
	require.NoError(t, q.Enqueue("queued-2", "queued-2"))

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Zero(t, q.Pending())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, dropped, 3)
	for _, id := range []string{"blocking", "queued-1", "queued-2"} {
		assert.ErrorIs(t, dropped[id], ErrQueueClosed, id)
	}
	assert.ErrorIs(t, q.Enqueue("late", "late"), ErrQueueClosed)
}

func TestStopDropsScheduledRetry(t *testing.T) {
	failed := make(chan struct{}, 1)
	dropped := make(chan error, 1)

	q := New("pending-retry", func(context.Context, int) error {
		failed <- struct{}{}
		return errors.New("unavailable")
	}, Config{
		MaxRetries: 5,
		RetryDelay: time.Hour,
		OnDrop:     func(_ string, err error) { dropped <- err },
	})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue("task-1", 1))
	<-failed

	q.Stop()
	select {
	case err := <-dropped:
		assert.ErrorIs(t, err, ErrQueueClosed)
	default:
		t.Fatal("pending retry was not reported")
	}
}
