package repository

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/mmiddlezong/problem-database/internal/common"
)

// RankedRating is one member of the rating sorted set.
type RankedRating struct {
	UserID string
	Rating int
}

// LeaderboardRepository keeps the current rating of every user in a sorted
// set. It is derived data; Postgres stays authoritative.
type LeaderboardRepository interface {
	SetRating(ctx context.Context, userID string, rating int) error
	Remove(ctx context.Context, userID string) error
	// ReplaceRatings swaps the whole set for ratings in one MULTI/EXEC.
	ReplaceRatings(ctx context.Context, ratings []RankedRating) error
	Top(ctx context.Context, limit int) ([]RankedRating, error)
}

type redisLeaderboardRepository struct {
	rdb redis.Cmdable
	key string
}

func NewRedisLeaderboardRepository(rdb redis.Cmdable, key string) LeaderboardRepository {
	return &redisLeaderboardRepository{rdb: rdb, key: key}
}

func (r *redisLeaderboardRepository) SetRating(ctx context.Context, userID string, rating int) error {
	if err := r.rdb.ZAdd(ctx, r.key, redis.Z{Score: float64(rating), Member: userID}).Err(); err != nil {
		return common.StoreError("redisLeaderboardRepository.SetRating", err)
	}
	return nil
}

func (r *redisLeaderboardRepository) Remove(ctx context.Context, userID string) error {
	if err := r.rdb.ZRem(ctx, r.key, userID).Err(); err != nil {
		return common.StoreError("redisLeaderboardRepository.Remove", err)
	}
	return nil
}

func (r *redisLeaderboardRepository) ReplaceRatings(ctx context.Context, ratings []RankedRating) error {
	members := make([]redis.Z, 0, len(ratings))
	for _, rr := range ratings {
		members = append(members, redis.Z{Score: float64(rr.Rating), Member: rr.UserID})
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, r.key, members...)
		}
		return nil
	})
	if err != nil {
		return common.StoreError("redisLeaderboardRepository.ReplaceRatings", err)
	}
	return nil
}

func (r *redisLeaderboardRepository) Top(ctx context.Context, limit int) ([]RankedRating, error) {
	zs, err := r.rdb.ZRevRangeWithScores(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, common.StoreError("redisLeaderboardRepository.Top", err)
	}
	out := make([]RankedRating, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, RankedRating{UserID: member, Rating: int(z.Score)})
	}
	return out, nil
}
