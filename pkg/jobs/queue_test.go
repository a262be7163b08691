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

type outcomes struct {
	mu   sync.Mutex
	errs map[string]error
}

func (o *outcomes) record(job Job, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.errs == nil {
		o.errs = make(map[string]error)
	}
	o.errs[job.ID] = err
}

func (o *outcomes) get(id string) (error, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	err, ok := o.errs[id]
	return err, ok
}

func TestQueueProcessesJobs(t *testing.T) {
	var processed int32
	results := &outcomes{}
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 2, OnDone: results.record})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "noop"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
	err, ok := results.get("b")
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	var attempts int32
	results := &outcomes{}
	boom := errors.New("boom")
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return boom
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond, OnDone: results.record})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	err, ok := results.get("job-1")
	require.True(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestQueueWithoutRetries(t *testing.T) {
	var attempts int32
	q := NewQueue("once", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("fail")
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
	q.Stop()
}

func TestQueueStopSettlesBufferedJobs(t *testing.T) {
	results := &outcomes{}
	running := make(chan struct{}, 3)
	q := NewQueue("stop", func(ctx context.Context, job Job) error {
		running <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{Workers: 1, OnDone: results.record})
	q.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	<-running
	q.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	for _, id := range []string{"a", "b", "c"} {
		err, ok := results.get(id)
		require.True(t, ok, id)
		assert.ErrorIs(t, err, context.Canceled, id)
	}
	assert.Error(t, q.Enqueue(Job{ID: "late"}))
}

func TestQueueDrainBeforeStopFinishesWork(t *testing.T) {
	var processed int32
	q := NewQueue("graceful", func(ctx context.Context, job Job) error {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&processed, 1)
		return ctx.Err()
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	q.Stop()
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}
