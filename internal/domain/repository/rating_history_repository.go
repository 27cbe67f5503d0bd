package repository

import (
	"context"
	"database/sql"

	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
)

type RatingHistoryRepository interface {
	CreateEntry(ctx context.Context, tx *sql.Tx, entry *model.RatingHistoryEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error)
}

type pgRatingHistoryRepository struct {
	db *sql.DB
}

func NewPgRatingHistoryRepository(db *sql.DB) RatingHistoryRepository {
	return &pgRatingHistoryRepository{db: db}
}

func (r *pgRatingHistoryRepository) CreateEntry(ctx context.Context, tx *sql.Tx, e *model.RatingHistoryEntry) error {
	query := `INSERT INTO rating_history (id, user_id, problem_attempt_id, old_rating, rating_change, new_rating)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING recorded_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		e.ID, e.UserID, e.ProblemAttemptID, e.OldRating, e.RatingChange, e.NewRating,
	).Scan(&e.RecordedAt)
	if err != nil {
		return common.StoreError("pgRatingHistoryRepository.CreateEntry", err)
	}
	return nil
}

func (r *pgRatingHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error) {
	query := `SELECT id, user_id, problem_attempt_id, old_rating, rating_change, new_rating, recorded_at
	          FROM rating_history
	          WHERE user_id = $1
	          ORDER BY recorded_at DESC, id DESC
	          LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, common.StoreError("pgRatingHistoryRepository.ListByUser query", err)
	}
	defer rows.Close()

	entries := []model.RatingHistoryEntry{}
	for rows.Next() {
		var e model.RatingHistoryEntry
		var attemptID sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &attemptID, &e.OldRating, &e.RatingChange, &e.NewRating, &e.RecordedAt); err != nil {
			return nil, common.StoreError("pgRatingHistoryRepository.ListByUser scan", err)
		}
		if attemptID.Valid {
			v := attemptID.String
			e.ProblemAttemptID = &v
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError("pgRatingHistoryRepository.ListByUser rows.Err", err)
	}
	return entries, nil
}
