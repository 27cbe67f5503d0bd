package service

import (
	"context"

	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/domain/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type UserService struct {
	userRepo    repository.UserRepository
	attemptRepo repository.AttemptRepository
	historyRepo repository.RatingHistoryRepository
}

func NewUserService(userRepo repository.UserRepository, attemptRepo repository.AttemptRepository, historyRepo repository.RatingHistoryRepository) *UserService {
	return &UserService{userRepo: userRepo, attemptRepo: attemptRepo, historyRepo: historyRepo}
}

type ProfileResponse struct {
	User            *model.User `json:"user"`
	AttemptsTotal   int         `json:"attempts_total"`
	AttemptsCorrect int         `json:"attempts_correct"`
}

func (s *UserService) Profile(ctx context.Context, email string) (*ProfileResponse, error) {
	if email == "" {
		return nil, common.ErrUnauthorized
	}
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	total, correct, err := s.attemptRepo.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return &ProfileResponse{User: user, AttemptsTotal: total, AttemptsCorrect: correct}, nil
}

// RatingHistory returns the newest entries first.
func (s *UserService) RatingHistory(ctx context.Context, email string, limit int) ([]model.RatingHistoryEntry, error) {
	if email == "" {
		return nil, common.ErrUnauthorized
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.historyRepo.ListByUser(ctx, user.ID, limit)
}
