package service

import (
	"context"
	"errors"

	"github.com/mmiddlezong/problem-database/internal/app/rating"
	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/domain/repository"
	"github.com/mmiddlezong/problem-database/internal/platform/content"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
	"github.com/mmiddlezong/problem-database/internal/platform/metrics"
)

const noMoreProblemsMessage = "No more problems available"

type SelectorService struct {
	userRepo    repository.UserRepository
	problemRepo repository.ProblemRepository
	content     content.Source
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func NewSelectorService(
	userRepo repository.UserRepository,
	problemRepo repository.ProblemRepository,
	contentSource content.Source,
	m *metrics.Metrics,
	log *logger.Logger,
) *SelectorService {
	return &SelectorService{
		userRepo:    userRepo,
		problemRepo: problemRepo,
		content:     contentSource,
		metrics:     m,
		log:         log.With("component", "selector_service"),
	}
}

// NextProblemResponse carries a nil Problem and a Message once the user has
// attempted everything.
type NextProblemResponse struct {
	Problem          *model.Problem `json:"problem"`
	ProblemStatement string         `json:"problem_statement"`
	Message          string         `json:"message,omitempty"`
}

// Next picks an unattempted problem for the user. It first draws at random
// from the rating window around the user's rating and otherwise falls back to
// the unattempted problem with the closest rating.
func (s *SelectorService) Next(ctx context.Context, email string) (*NextProblemResponse, error) {
	if email == "" {
		return nil, common.ErrUnauthorized
	}
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	problem, phase, err := s.pick(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.ProblemSelections.WithLabelValues(phase).Inc()

	if problem == nil {
		s.log.Info("no unattempted problems left", "user_id", user.ID, "rating", user.Rating)
		return &NextProblemResponse{Message: noMoreProblemsMessage}, nil
	}

	s.log.Debug("problem selected", "user_id", user.ID, "rating", user.Rating, "problem_id", problem.ID, "problem_rating", problem.EffectiveRating(), "phase", phase)
	return &NextProblemResponse{
		Problem:          problem,
		ProblemStatement: fetchStatement(ctx, s.content, s.metrics, s.log, problem),
	}, nil
}

func (s *SelectorService) pick(ctx context.Context, user *model.User) (*model.Problem, string, error) {
	lo, hi := rating.Window(user.Rating)
	problem, err := s.problemRepo.RandomUnattemptedInRange(ctx, user.ID, lo, hi)
	if err == nil {
		return problem, metrics.PhaseWindow, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, "", err
	}

	problem, err = s.problemRepo.NearestUnattempted(ctx, user.ID, user.Rating)
	if err == nil {
		return problem, metrics.PhaseNearest, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, "", err
	}
	return nil, metrics.PhaseExhausted, nil
}
