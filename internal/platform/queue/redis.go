package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect creates a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return rdb, nil
}

// ErrEmpty is returned by Pop when nothing arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

// Queue is a JSON-encoded FIFO backed by a Redis list.
type Queue struct {
	rdb  redis.Cmdable
	name string
}

func New(rdb redis.Cmdable, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

func (q *Queue) Name() string { return q.name }

// Push appends v to the tail of the queue.
func (q *Queue) Push(ctx context.Context, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("queue %s: marshal: %w", q.name, err)
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("queue %s: push: %w", q.name, err)
	}
	return nil
}

// Pop blocks up to timeout for the oldest item and decodes it into dst.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration, dst interface{}) error {
	result, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrEmpty
		}
		return fmt.Errorf("queue %s: pop: %w", q.name, err)
	}
	// result[0] is the list name, result[1] the payload
	if len(result) < 2 {
		return ErrEmpty
	}
	if err := json.Unmarshal([]byte(result[1]), dst); err != nil {
		return fmt.Errorf("queue %s: unmarshal %q: %w", q.name, result[1], err)
	}
	return nil
}

// Requeue puts a raw item back at the head so it is retried next.
func (q *Queue) Requeue(ctx context.Context, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("queue %s: marshal: %w", q.name, err)
	}
	return q.rdb.RPush(ctx, q.name, payload).Err()
}
