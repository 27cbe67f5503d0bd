package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
	"github.com/mmiddlezong/problem-database/internal/platform/queue"
)

type memQueue struct {
	items [][]byte
}

func (q *memQueue) Name() string { return "test_queue" }

func (q *memQueue) Pop(_ context.Context, _ time.Duration, dst interface{}) error {
	if len(q.items) == 0 {
		return queue.ErrEmpty
	}
	item := q.items[0]
	q.items = q.items[1:]
	return json.Unmarshal(item, dst)
}

func (q *memQueue) Requeue(_ context.Context, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	q.items = append([][]byte{b}, q.items...)
	return nil
}

func (q *memQueue) push(t *testing.T, v interface{}) {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	q.items = append(q.items, b)
}

type recorder struct {
	failures int
	got      []model.RatingEvent
	warms    int
	warmErr  error
}

func (r *recorder) RecordRating(_ context.Context, ev model.RatingEvent) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("redis down")
	}
	r.got = append(r.got, ev)
	return nil
}

func (r *recorder) Warm(context.Context) error {
	r.warms++
	return r.warmErr
}

func newTestWorker(q *memQueue, rec *recorder) *LeaderboardWorker {
	w := NewLeaderboardWorker(q, rec, logger.NewNop())
	w.sleep = func(context.Context, time.Duration) {}
	return w
}

func TestWorkerRecordsEvents(t *testing.T) {
	q := &memQueue{}
	rec := &recorder{}
	q.push(t, model.RatingEvent{UserID: "u1", NewRating: 1210})
	q.push(t, model.RatingEvent{UserID: "u2", NewRating: 1190})

	w := newTestWorker(q, rec)
	w.step(context.Background())
	w.step(context.Background())
	w.step(context.Background()) // empty queue is a no-op

	require.Len(t, rec.got, 2)
	assert.Equal(t, "u1", rec.got[0].UserID)
	assert.Equal(t, 1190, rec.got[1].NewRating)
}

func TestWorkerRetriesThenSucceeds(t *testing.T) {
	q := &memQueue{}
	rec := &recorder{failures: 1}
	q.push(t, model.RatingEvent{UserID: "u1", NewRating: 1210})

	w := newTestWorker(q, rec)
	w.step(context.Background())
	assert.Empty(t, rec.got)
	require.Len(t, q.items, 1)

	w.step(context.Background())
	require.Len(t, rec.got, 1)
	assert.Empty(t, q.items)
}

func TestWorkerDropsAfterMaxRetries(t *testing.T) {
	q := &memQueue{}
	rec := &recorder{failures: maxRetries + 5}
	q.push(t, model.RatingEvent{UserID: "u1", NewRating: 1210})

	w := newTestWorker(q, rec)
	for i := 0; i <= maxRetries; i++ {
		w.step(context.Background())
	}
	assert.Empty(t, q.items)
	assert.Empty(t, rec.got)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		newTestWorker(&memQueue{}, &recorder{}).Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerResyncsOnStartAndPeriodically(t *testing.T) {
	rec := &recorder{}
	w := newTestWorker(&memQueue{}, rec)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	ctx := context.Background()

	w.syncIfDue(ctx)
	assert.Equal(t, 1, rec.warms, "first pass rebuilds the leaderboard")

	now = now.Add(resyncInterval - time.Second)
	w.syncIfDue(ctx)
	assert.Equal(t, 1, rec.warms)

	now = now.Add(time.Second)
	w.syncIfDue(ctx)
	assert.Equal(t, 2, rec.warms)
}

func TestWorkerResyncFailureWaitsForNextInterval(t *testing.T) {
	rec := &recorder{warmErr: errors.New("postgres down")}
	w := newTestWorker(&memQueue{}, rec)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	w.syncIfDue(context.Background())
	w.syncIfDue(context.Background())
	assert.Equal(t, 1, rec.warms)
}
