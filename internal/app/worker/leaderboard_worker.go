package worker

import (
	"context"
	"errors"
	"time"

	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
	"github.com/mmiddlezong/problem-database/internal/platform/queue"
)

const (
	popTimeout   = 5 * time.Second
	errorBackoff = 5 * time.Second
	maxRetries   = 3

	// resyncInterval bounds how long a dropped event can leave the
	// leaderboard stale.
	resyncInterval = 10 * time.Minute
)

// EventSource is the consuming side of the rating queue.
type EventSource interface {
	Name() string
	Pop(ctx context.Context, timeout time.Duration, dst interface{}) error
	Requeue(ctx context.Context, v interface{}) error
}

// RatingRecorder applies a committed rating change to the leaderboard and
// can rebuild it from scratch.
type RatingRecorder interface {
	RecordRating(ctx context.Context, event model.RatingEvent) error
	Warm(ctx context.Context) error
}

type queuedEvent struct {
	model.RatingEvent
	Retries int `json:"retries,omitempty"`
}

// LeaderboardWorker drains rating events into the leaderboard.
type LeaderboardWorker struct {
	source   EventSource
	recorder RatingRecorder
	log      *logger.Logger
	sleep    func(ctx context.Context, d time.Duration)
	now      func() time.Time
	lastSync time.Time
}

func NewLeaderboardWorker(source EventSource, recorder RatingRecorder, log *logger.Logger) *LeaderboardWorker {
	return &LeaderboardWorker{
		source:   source,
		recorder: recorder,
		log:      log.With("component", "leaderboard_worker", "queue", source.Name()),
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Start rebuilds the leaderboard, then drains events and rebuilds again every
// resyncInterval. It blocks until ctx is cancelled.
func (w *LeaderboardWorker) Start(ctx context.Context) {
	w.log.Info("leaderboard worker started")
	for {
		if ctx.Err() != nil {
			w.log.Info("leaderboard worker stopping")
			return
		}
		w.syncIfDue(ctx)
		w.step(ctx)
	}
}

func (w *LeaderboardWorker) syncIfDue(ctx context.Context) {
	now := w.now()
	if !w.lastSync.IsZero() && now.Sub(w.lastSync) < resyncInterval {
		return
	}
	w.lastSync = now
	if err := w.recorder.Warm(ctx); err != nil {
		w.log.Warn("leaderboard resync failed", "error", err)
		return
	}
	w.log.Info("leaderboard resynced")
}

// step handles at most one event.
func (w *LeaderboardWorker) step(ctx context.Context) {
	var ev queuedEvent
	err := w.source.Pop(ctx, popTimeout, &ev)
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrEmpty), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	default:
		w.log.Error("failed to pop rating event", "error", err)
		w.sleep(ctx, errorBackoff)
		return
	}

	if err := w.recorder.RecordRating(ctx, ev.RatingEvent); err != nil {
		w.retry(ctx, ev, err)
		return
	}
	w.log.Debug("leaderboard updated", "user_id", ev.UserID, "rating", ev.NewRating)
}

func (w *LeaderboardWorker) retry(ctx context.Context, ev queuedEvent, cause error) {
	if ev.Retries >= maxRetries {
		w.log.Error("dropping rating event after retries", "user_id", ev.UserID, "retries", ev.Retries, "error", cause)
		return
	}
	ev.Retries++
	if err := w.source.Requeue(ctx, ev); err != nil {
		w.log.Error("failed to requeue rating event", "user_id", ev.UserID, "error", err)
		return
	}
	w.log.Warn("rating event requeued", "user_id", ev.UserID, "retries", ev.Retries, "error", cause)
	w.sleep(ctx, errorBackoff)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
