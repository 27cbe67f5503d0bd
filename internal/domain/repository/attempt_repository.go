package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
)

// AttemptUserProblemKey is the constraint that allows one attempt per user and problem.
const AttemptUserProblemKey = "problem_attempts_user_problem_key"

type AttemptRepository interface {
	// CreateAttempt inserts an attempt. A second attempt on the same problem
	// by the same user fails with common.ErrAlreadyAttempted.
	CreateAttempt(ctx context.Context, tx *sql.Tx, attempt *model.Attempt) error
	Exists(ctx context.Context, userID, problemID string) (bool, error)
	CountByUser(ctx context.Context, userID string) (total int, correct int, err error)
}

type pgAttemptRepository struct {
	db *sql.DB
}

func NewPgAttemptRepository(db *sql.DB) AttemptRepository {
	return &pgAttemptRepository{db: db}
}

func (r *pgAttemptRepository) CreateAttempt(ctx context.Context, tx *sql.Tx, a *model.Attempt) error {
	query := `INSERT INTO problem_attempts (id, user_id, problem_id, user_answer, is_correct, rating_change)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING attempted_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		a.ID, a.UserID, a.ProblemID, a.UserAnswer, a.IsCorrect, a.RatingChange,
	).Scan(&a.AttemptedAt)
	if err != nil {
		if common.IsUniqueViolation(err, AttemptUserProblemKey) {
			return fmt.Errorf("pgAttemptRepository.CreateAttempt: %w", common.ErrAlreadyAttempted)
		}
		return common.StoreError("pgAttemptRepository.CreateAttempt", err)
	}
	return nil
}

func (r *pgAttemptRepository) Exists(ctx context.Context, userID, problemID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM problem_attempts WHERE user_id = $1 AND problem_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, problemID).Scan(&exists); err != nil {
		return false, common.StoreError("pgAttemptRepository.Exists", err)
	}
	return exists, nil
}

func (r *pgAttemptRepository) CountByUser(ctx context.Context, userID string) (int, int, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_correct) FROM problem_attempts WHERE user_id = $1`
	var total, correct int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total, &correct); err != nil {
		return 0, 0, common.StoreError("pgAttemptRepository.CountByUser", err)
	}
	return total, correct, nil
}
