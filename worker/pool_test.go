package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/fulfillment-service/worker"
	"go.uber.org/zap"
)

func newPool(q worker.Queue) *worker.Pool {
	logger, _ := zap.NewDevelopment()
	return worker.NewPool(q, worker.PoolConfig{Workers: 2, MaxAttempts: 3, Backoff: time.Millisecond}, logger)
}

func TestNewTask_MarshalsPayload(t *testing.T) {
	task, err := worker.NewTask("notification.send", map[string]string{"title": "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "notification.send", task.Kind)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, "hi", payload["title"])
}

func TestMemoryQueue_FullAndDrain(t *testing.T) {
	q := worker.NewMemoryQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, worker.Task{ID: "1"}))
	assert.ErrorIs(t, q.Enqueue(ctx, worker.Task{ID: "2"}), worker.ErrQueueFull)
	assert.Equal(t, 1, q.Len())

	task, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", task.ID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Dequeue(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPool_RetriesUntilSuccess(t *testing.T) {
	pool := newPool(worker.NewMemoryQueue(1))

	var calls int32
	pool.Register("flaky", func(_ context.Context, _ worker.Task) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("temporary")
		}
		return nil
	})

	pool.Process(context.Background(), worker.Task{ID: "t1", Kind: "flaky"})
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPool_GivesUpAfterMaxAttempts(t *testing.T) {
	pool := newPool(worker.NewMemoryQueue(1))

	var calls int32
	pool.Register("broken", func(_ context.Context, _ worker.Task) error {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	})

	assert.NotPanics(t, func() {
		pool.Process(context.Background(), worker.Task{ID: "t1", Kind: "broken"})
	})
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPool_RunDrainsQueue(t *testing.T) {
	q := worker.NewMemoryQueue(10)
	pool := newPool(q)

	done := make(chan string, 3)
	pool.Register("echo", func(_ context.Context, task worker.Task) error {
		done <- task.ID
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = pool.Run(ctx)
		close(stopped)
	}()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, worker.Task{ID: id, Kind: "echo"}))
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}
	assert.Len(t, seen, 3)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}
}
