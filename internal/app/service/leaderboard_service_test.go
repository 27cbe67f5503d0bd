package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
)

func newLeaderboard(store *memStore) *LeaderboardService {
	return NewLeaderboardService(memUserRepo{store}, memBoardRepo{store}, logger.NewNop())
}

func TestLeaderboardWarmsFromDatabase(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "a@example.com", 1300)
	store.addUser("u2", "b@example.com", 1250)
	store.addUser("u3", "c@example.com", 1100)
	svc := newLeaderboard(store)
	ctx := context.Background()

	entries, err := svc.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.LeaderboardEntry{Rank: 1, UserID: "u1", Name: "User u1", Rating: 1300}, entries[0])
	assert.Len(t, store.board, 3, "cache warmed with every user")

	store.users["u3"].Rating = 1400
	require.NoError(t, svc.RecordRating(ctx, model.RatingEvent{UserID: "u3", NewRating: 1400}))
	entries, err = svc.Top(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "u3", entries[0].UserID)
	assert.Equal(t, 1400, entries[0].Rating)
}

func TestLeaderboardFallsBackWhenCacheDown(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "a@example.com", 1300)
	store.failBoard = errors.New("redis down")

	entries, err := newLeaderboard(store).Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1300, entries[0].Rating)
}

func TestLeaderboardListsUsersWithoutRatingEvents(t *testing.T) {
	store := newMemStore()
	store.addUser("a", "a@example.com", 1190)
	store.addUser("b", "b@example.com", 1200)
	svc := newLeaderboard(store)
	ctx := context.Background()

	require.NoError(t, svc.RecordRating(ctx, model.RatingEvent{UserID: "a", NewRating: 1190}))
	require.NoError(t, svc.Warm(ctx))

	entries, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].UserID)
	assert.Equal(t, "a", entries[1].UserID)
}

func TestRecordRatingUsesStoredRating(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "a@example.com", 1220)
	svc := newLeaderboard(store)
	ctx := context.Background()

	// Events delivered newest first.
	require.NoError(t, svc.RecordRating(ctx, model.RatingEvent{UserID: "u1", NewRating: 1220}))
	require.NoError(t, svc.RecordRating(ctx, model.RatingEvent{UserID: "u1", NewRating: 1210}))

	assert.Equal(t, 1220, store.board["u1"])
}

func TestRecordRatingRemovesDeletedUser(t *testing.T) {
	store := newMemStore()
	store.board["gone"] = 1500
	svc := newLeaderboard(store)

	require.NoError(t, svc.RecordRating(context.Background(), model.RatingEvent{UserID: "gone", NewRating: 1500}))
	assert.NotContains(t, store.board, "gone")
}

func TestWarmDropsStaleMembers(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "a@example.com", 1250)
	store.board["u1"] = 1000
	store.board["gone"] = 1500

	require.NoError(t, newLeaderboard(store).Warm(context.Background()))
	assert.Equal(t, map[string]int{"u1": 1250}, store.board)
}
