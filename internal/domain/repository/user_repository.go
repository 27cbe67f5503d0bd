package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.User, error)
	// ApplyRatingChange adds delta to the stored rating and returns the result.
	ApplyRatingChange(ctx context.Context, tx *sql.Tx, userID string, delta int) (int, error)
	TopByRating(ctx context.Context, limit int) ([]model.User, error)
	AllRatings(ctx context.Context) ([]RankedRating, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, name, email, hashed_password, role, rating, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }, user *model.User) error {
	return row.Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.Role, &user.Rating, &user.CreatedAt, &user.UpdatedAt)
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, hashed_password, role, rating)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Name, user.Email, user.HashedPassword, user.Role, user.Rating).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, "") {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return common.StoreError("pgUserRepository.Create", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user := &model.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, email), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreError("pgUserRepository.FindByEmail", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user := &model.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, id), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreError("pgUserRepository.FindByID", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[])`
	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, common.StoreError("pgUserRepository.FindByIDs query", err)
	}
	defer rows.Close()
	return collectUsers(rows, "pgUserRepository.FindByIDs")
}

func (r *pgUserRepository) ApplyRatingChange(ctx context.Context, tx *sql.Tx, userID string, delta int) (int, error) {
	query := `UPDATE users SET rating = rating + $1, updated_at = NOW()
	          WHERE id = $2
	          RETURNING rating`
	var newRating int
	if err := pick(r.db, tx).QueryRowContext(ctx, query, delta, userID).Scan(&newRating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, common.StoreError("pgUserRepository.ApplyRatingChange", err)
	}
	return newRating, nil
}

func (r *pgUserRepository) TopByRating(ctx context.Context, limit int) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY rating DESC, created_at ASC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, common.StoreError("pgUserRepository.TopByRating query", err)
	}
	defer rows.Close()
	return collectUsers(rows, "pgUserRepository.TopByRating")
}

func (r *pgUserRepository) AllRatings(ctx context.Context) ([]RankedRating, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, rating FROM users`)
	if err != nil {
		return nil, common.StoreError("pgUserRepository.AllRatings query", err)
	}
	defer rows.Close()

	ratings := []RankedRating{}
	for rows.Next() {
		var rr RankedRating
		if err := rows.Scan(&rr.UserID, &rr.Rating); err != nil {
			return nil, common.StoreError("pgUserRepository.AllRatings scan", err)
		}
		ratings = append(ratings, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError("pgUserRepository.AllRatings rows.Err", err)
	}
	return ratings, nil
}

func collectUsers(rows *sql.Rows, op string) ([]model.User, error) {
	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, common.StoreError(op+" scan", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError(op+" rows.Err", err)
	}
	return users, nil
}
