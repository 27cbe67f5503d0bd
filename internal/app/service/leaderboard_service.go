package service

import (
	"context"
	"errors"

	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/domain/repository"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type LeaderboardService struct {
	userRepo  repository.UserRepository
	boardRepo repository.LeaderboardRepository
	log       *logger.Logger
}

func NewLeaderboardService(userRepo repository.UserRepository, boardRepo repository.LeaderboardRepository, log *logger.Logger) *LeaderboardService {
	return &LeaderboardService{userRepo: userRepo, boardRepo: boardRepo, log: log.With("component", "leaderboard_service")}
}

// RecordRating copies the user's stored rating into the sorted set. The
// rating carried by the event is ignored so that events applied late or out
// of order cannot overwrite a newer value.
func (s *LeaderboardService) RecordRating(ctx context.Context, event model.RatingEvent) error {
	user, err := s.userRepo.FindByID(ctx, event.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return s.boardRepo.Remove(ctx, event.UserID)
	}
	if err != nil {
		return err
	}
	return s.boardRepo.SetRating(ctx, user.ID, user.Rating)
}

// Warm rebuilds the sorted set from every user's stored rating.
func (s *LeaderboardService) Warm(ctx context.Context) error {
	ratings, err := s.userRepo.AllRatings(ctx)
	if err != nil {
		return err
	}
	return s.boardRepo.ReplaceRatings(ctx, ratings)
}

// Top serves the sorted set when it is populated and otherwise reads
// Postgres and re-warms the set.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit < 1 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	ranked, err := s.boardRepo.Top(ctx, limit)
	if err != nil {
		s.log.Warn("leaderboard cache unavailable, reading database", "error", err)
	}
	if err != nil || len(ranked) == 0 {
		return s.fromDatabase(ctx, limit)
	}

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.UserID)
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	entries := make([]model.LeaderboardEntry, 0, len(ranked))
	for _, r := range ranked {
		name, ok := names[r.UserID]
		if !ok {
			continue // user deleted since the rating was cached
		}
		entries = append(entries, model.LeaderboardEntry{Rank: len(entries) + 1, UserID: r.UserID, Name: name, Rating: r.Rating})
	}
	return entries, nil
}

func (s *LeaderboardService) fromDatabase(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	users, err := s.userRepo.TopByRating(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, model.LeaderboardEntry{Rank: i + 1, UserID: u.ID, Name: u.Name, Rating: u.Rating})
	}
	if err := s.Warm(ctx); err != nil {
		s.log.Warn("could not warm leaderboard cache", "error", err)
	}
	return entries, nil
}
