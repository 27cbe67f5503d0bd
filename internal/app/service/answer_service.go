package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mmiddlezong/problem-database/internal/app/rating"
	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/domain/repository"
	"github.com/mmiddlezong/problem-database/internal/platform/content"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
	"github.com/mmiddlezong/problem-database/internal/platform/metrics"
)

// EventPublisher hands rating events to whoever keeps derived views current.
type EventPublisher interface {
	Push(ctx context.Context, v interface{}) error
}

type AnswerService struct {
	userRepo    repository.UserRepository
	problemRepo repository.ProblemRepository
	attemptRepo repository.AttemptRepository
	historyRepo repository.RatingHistoryRepository
	tx          repository.Transactor
	content     content.Source
	events      EventPublisher
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func NewAnswerService(
	userRepo repository.UserRepository,
	problemRepo repository.ProblemRepository,
	attemptRepo repository.AttemptRepository,
	historyRepo repository.RatingHistoryRepository,
	tx repository.Transactor,
	contentSource content.Source,
	events EventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *AnswerService {
	return &AnswerService{
		userRepo:    userRepo,
		problemRepo: problemRepo,
		attemptRepo: attemptRepo,
		historyRepo: historyRepo,
		tx:          tx,
		content:     contentSource,
		events:      events,
		metrics:     m,
		log:         log.With("component", "answer_service"),
	}
}

type SubmitAnswerRequest struct {
	ProblemID string `json:"problem_id"`
	Answer    string `json:"answer"`
}

// SubmitAnswerResult is either AlreadyAttempted, with nothing changed, or a
// recorded attempt.
type SubmitAnswerResult struct {
	AlreadyAttempted bool
	IsCorrect        bool
	RatingChange     int
	NewRating        int
	CorrectAnswer    *string
	SolutionContent  json.RawMessage // nil when the content service could not supply it
}

// Submit grades an answer, records the attempt and moves the user's rating,
// all in one transaction. A user gets exactly one attempt per problem.
func (s *AnswerService) Submit(ctx context.Context, email string, req SubmitAnswerRequest) (*SubmitAnswerResult, error) {
	if email == "" {
		return nil, common.ErrUnauthorized
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(req.ProblemID); err != nil {
		return nil, common.ErrNotFound
	}
	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}

	attempted, err := s.attemptRepo.Exists(ctx, user.ID, problem.ID)
	if err != nil {
		return nil, err
	}
	if attempted {
		return s.alreadyAttempted(user, problem), nil
	}

	isCorrect := rating.IsCorrect(req.Answer, problem.Answer)
	change := rating.Change(isCorrect)

	problemID := problem.ID
	attempt := &model.Attempt{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		ProblemID:    &problemID,
		UserAnswer:   req.Answer,
		IsCorrect:    isCorrect,
		RatingChange: change,
	}
	var entry *model.RatingHistoryEntry

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.attemptRepo.CreateAttempt(ctx, tx, attempt); err != nil {
			return err
		}
		newRating, err := s.userRepo.ApplyRatingChange(ctx, tx, user.ID, change)
		if err != nil {
			return err
		}
		attemptID := attempt.ID
		entry = &model.RatingHistoryEntry{
			ID:               uuid.NewString(),
			UserID:           user.ID,
			ProblemAttemptID: &attemptID,
			OldRating:        newRating - change,
			RatingChange:     change,
			NewRating:        newRating,
		}
		return s.historyRepo.CreateEntry(ctx, tx, entry)
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyAttempted) {
			return s.alreadyAttempted(user, problem), nil
		}
		return nil, err
	}

	outcome := metrics.OutcomeIncorrect
	if isCorrect {
		outcome = metrics.OutcomeCorrect
	}
	s.metrics.AnswerSubmissions.WithLabelValues(outcome).Inc()
	s.log.Info("answer recorded",
		"user_id", user.ID,
		"problem_id", problem.ID,
		"is_correct", isCorrect,
		"old_rating", entry.OldRating,
		"new_rating", entry.NewRating,
	)

	publishRatingEvent(ctx, s.events, s.log, model.RatingEvent{UserID: user.ID, NewRating: entry.NewRating, RecordedAt: time.Now().UTC()})

	return &SubmitAnswerResult{
		IsCorrect:       isCorrect,
		RatingChange:    change,
		NewRating:       entry.NewRating,
		CorrectAnswer:   problem.Answer,
		SolutionContent: s.solution(ctx, problem),
	}, nil
}

func (s *AnswerService) alreadyAttempted(user *model.User, problem *model.Problem) *SubmitAnswerResult {
	s.metrics.AnswerSubmissions.WithLabelValues(metrics.OutcomeAlreadyAttempted).Inc()
	s.log.Info("problem already attempted", "user_id", user.ID, "problem_id", problem.ID)
	return &SubmitAnswerResult{AlreadyAttempted: true}
}

func (s *AnswerService) solution(ctx context.Context, problem *model.Problem) json.RawMessage {
	doc, err := s.content.Full(ctx, problem.ContentPath)
	if err != nil {
		s.metrics.ContentFetchFailures.WithLabelValues("full").Inc()
		s.log.Warn("could not load problem solution", "problem_id", problem.ID, "content_path", problem.ContentPath, "error", err)
		return nil
	}
	return doc
}

func publishRatingEvent(ctx context.Context, events EventPublisher, log *logger.Logger, event model.RatingEvent) {
	if events == nil {
		return
	}
	if err := events.Push(ctx, event); err != nil {
		log.Warn("could not publish rating event", "user_id", event.UserID, "error", err)
	}
}
