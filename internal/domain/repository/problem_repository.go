package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	DeleteAllProblems(ctx context.Context, tx *sql.Tx) (int64, error)
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int) ([]model.Problem, int, error)

	// RandomUnattemptedInRange returns a uniformly random problem the user has
	// not attempted whose effective rating lies in [lo, hi], or ErrNotFound.
	RandomUnattemptedInRange(ctx context.Context, userID string, lo, hi int) (*model.Problem, error)
	// NearestUnattempted returns the unattempted problem whose effective rating
	// is closest to target, or ErrNotFound.
	NearestUnattempted(ctx context.Context, userID string, target int) (*model.Problem, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `p.id, p.source, p.hyperlink, p.keyphrase, p.content_path, p.format, p.answer, p.rating, p.author, p.created_at`

func scanProblem(row interface{ Scan(...interface{}) error }, p *model.Problem) error {
	var rating sql.NullInt64
	var answer sql.NullString
	if err := row.Scan(&p.ID, &p.Source, &p.Hyperlink, &p.Keyphrase, &p.ContentPath, &p.Format, &answer, &rating, &p.Author, &p.CreatedAt); err != nil {
		return err
	}
	if rating.Valid {
		v := int(rating.Int64)
		p.Rating = &v
	}
	if answer.Valid {
		v := answer.String
		p.Answer = &v
	}
	return nil
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, source, hyperlink, keyphrase, content_path, format, answer, rating, author)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, ` + fmt.Sprint(model.DefaultRating) + `), $9)
	          RETURNING rating, created_at`

	var stored int
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		p.ID, p.Source, p.Hyperlink, p.Keyphrase, p.ContentPath, string(p.Format), p.Answer, p.Rating, p.Author,
	).Scan(&stored, &p.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, "") { // content_path is unique
			return fmt.Errorf("problem with content path %q already exists: %w", p.ContentPath, common.ErrConflict)
		}
		return common.StoreError("pgProblemRepository.CreateProblem", err)
	}
	p.Rating = &stored
	return nil
}

func (r *pgProblemRepository) DeleteAllProblems(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM problems`)
	if err != nil {
		return 0, common.StoreError("pgProblemRepository.DeleteAllProblems", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.id = $1`

	problem := &model.Problem{}
	if err := scanProblem(r.db.QueryRowContext(ctx, query, id), problem); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreError("pgProblemRepository.FindProblemByID", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int) ([]model.Problem, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems`).Scan(&total); err != nil {
		return nil, 0, common.StoreError("pgProblemRepository.ListProblems count", err)
	}

	query := `SELECT ` + problemColumns + ` FROM problems p
	          ORDER BY p.created_at ASC, p.id ASC
	          LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, common.StoreError("pgProblemRepository.ListProblems query", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := scanProblem(rows, &p); err != nil {
			return nil, 0, common.StoreError("pgProblemRepository.ListProblems scan", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, common.StoreError("pgProblemRepository.ListProblems rows.Err", err)
	}

	return problems, total, nil
}

// unattemptedFilter excludes every problem the user ($1) has an attempt on.
const unattemptedFilter = `NOT EXISTS (
            SELECT 1 FROM problem_attempts a
            WHERE a.problem_id = p.id AND a.user_id = $1)`

func (r *pgProblemRepository) RandomUnattemptedInRange(ctx context.Context, userID string, lo, hi int) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p
	          WHERE COALESCE(p.rating, ` + fmt.Sprint(model.DefaultRating) + `) BETWEEN $2 AND $3
	            AND ` + unattemptedFilter + `
	          ORDER BY RANDOM()
	          LIMIT 1`

	problem := &model.Problem{}
	if err := scanProblem(r.db.QueryRowContext(ctx, query, userID, lo, hi), problem); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreError("pgProblemRepository.RandomUnattemptedInRange", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) NearestUnattempted(ctx context.Context, userID string, target int) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p
	          WHERE ` + unattemptedFilter + `
	          ORDER BY ABS(COALESCE(p.rating, ` + fmt.Sprint(model.DefaultRating) + `) - $2), p.created_at ASC, p.id ASC
	          LIMIT 1`

	problem := &model.Problem{}
	if err := scanProblem(r.db.QueryRowContext(ctx, query, userID, target), problem); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreError("pgProblemRepository.NearestUnattempted", err)
	}
	return problem, nil
}
