package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/domain/repository"
	"github.com/mmiddlezong/problem-database/internal/platform/content"
)

// memStore backs every repository interface with maps and supports
// transactions by snapshotting state.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	problems map[string]*model.Problem
	order    []string // problem ids in insertion order
	attempts []model.Attempt
	history  []model.RatingHistoryEntry
	board    map[string]int

	failHistory error // injected into CreateEntry
	failStore   error // injected into every read
	failBoard   error
	clock       time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*model.User{},
		problems: map[string]*model.Problem{},
		board:    map[string]int{},
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addUser(id, email string, r int) *model.User {
	u := &model.User{ID: id, Name: "User " + id, Email: email, Role: model.RoleUser, Rating: r}
	s.users[id] = u
	return u
}

func (s *memStore) addProblem(id string, r *int, answer *string) *model.Problem {
	p := &model.Problem{ID: id, Source: "Problem " + id, ContentPath: "path/" + id, Format: model.FormatShortAnswer, Rating: r, Answer: answer, CreatedAt: s.tick()}
	s.problems[id] = p
	s.order = append(s.order, id)
	return p
}

func (s *memStore) attempted(userID, problemID string) bool {
	for _, a := range s.attempts {
		if a.UserID == userID && a.ProblemID != nil && *a.ProblemID == problemID {
			return true
		}
	}
	return false
}

// --- Transactor ---

type memSnapshot struct {
	users    map[string]model.User
	problems map[string]*model.Problem
	order    []string
	attempts []model.Attempt
	history  []model.RatingHistoryEntry
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	snap := memSnapshot{
		users:    map[string]model.User{},
		problems: map[string]*model.Problem{},
		order:    append([]string(nil), s.order...),
		attempts: append([]model.Attempt(nil), s.attempts...),
		history:  append([]model.RatingHistoryEntry(nil), s.history...),
	}
	for id, u := range s.users {
		snap.users[id] = *u
	}
	for id, p := range s.problems {
		snap.problems[id] = p
	}

	if err := fn(nil); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		for id := range s.users {
			if u, ok := snap.users[id]; ok {
				*s.users[id] = u
			} else {
				delete(s.users, id)
			}
		}
		s.problems = snap.problems
		s.order = snap.order
		s.attempts = snap.attempts
		s.history = snap.history
		return err
	}
	return nil
}

// --- UserRepository ---

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
	}
	cp := *user
	cp.CreatedAt = r.s.tick()
	r.s.users[user.ID] = &cp
	return nil
}

func (r memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failStore != nil {
		return nil, r.s.failStore
	}
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUserRepo) FindByIDs(_ context.Context, ids []string) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r memUserRepo) ApplyRatingChange(_ context.Context, _ *sql.Tx, userID string, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return 0, common.ErrNotFound
	}
	u.Rating += delta
	return u.Rating, nil
}

func (r memUserRepo) TopByRating(_ context.Context, limit int) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, u := range r.s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memUserRepo) AllRatings(_ context.Context) ([]repository.RankedRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failStore != nil {
		return nil, r.s.failStore
	}
	var out []repository.RankedRating
	for id, u := range r.s.users {
		out = append(out, repository.RankedRating{UserID: id, Rating: u.Rating})
	}
	return out, nil
}

// --- ProblemRepository ---

type memProblemRepo struct{ s *memStore }

func (r memProblemRepo) CreateProblem(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.problems {
		if existing.ContentPath == p.ContentPath {
			return fmt.Errorf("problem with content path %q already exists: %w", p.ContentPath, common.ErrConflict)
		}
	}
	p.CreatedAt = r.s.tick()
	cp := *p
	r.s.problems[p.ID] = &cp
	r.s.order = append(r.s.order, p.ID)
	return nil
}

func (r memProblemRepo) DeleteAllProblems(_ context.Context, _ *sql.Tx) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.problems))
	r.s.problems = map[string]*model.Problem{}
	r.s.order = nil
	return n, nil
}

func (r memProblemRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failStore != nil {
		return nil, r.s.failStore
	}
	p, ok := r.s.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memProblemRepo) ListProblems(_ context.Context, limit, offset int) ([]model.Problem, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Problem{}
	for i, id := range r.s.order {
		if i >= offset && len(out) < limit {
			out = append(out, *r.s.problems[id])
		}
	}
	return out, len(r.s.order), nil
}

func (r memProblemRepo) unattempted(userID string) []*model.Problem {
	var out []*model.Problem
	for _, id := range r.s.order {
		if !r.s.attempted(userID, id) {
			out = append(out, r.s.problems[id])
		}
	}
	return out
}

// RandomUnattemptedInRange returns the first match in insertion order; the
// real store orders by RANDOM().
func (r memProblemRepo) RandomUnattemptedInRange(_ context.Context, userID string, lo, hi int) (*model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failStore != nil {
		return nil, r.s.failStore
	}
	for _, p := range r.unattempted(userID) {
		if er := p.EffectiveRating(); er >= lo && er <= hi {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memProblemRepo) NearestUnattempted(_ context.Context, userID string, target int) (*model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *model.Problem
	for _, p := range r.unattempted(userID) {
		if best == nil || distance(p, target) < distance(best, target) {
			best = p
		}
	}
	if best == nil {
		return nil, common.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func distance(p *model.Problem, target int) int {
	d := p.EffectiveRating() - target
	if d < 0 {
		return -d
	}
	return d
}

// --- AttemptRepository ---

type memAttemptRepo struct{ s *memStore }

func (r memAttemptRepo) CreateAttempt(_ context.Context, _ *sql.Tx, a *model.Attempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ProblemID != nil && r.s.attempted(a.UserID, *a.ProblemID) {
		return fmt.Errorf("memAttemptRepo.CreateAttempt: %w", common.ErrAlreadyAttempted)
	}
	a.AttemptedAt = r.s.tick()
	r.s.attempts = append(r.s.attempts, *a)
	return nil
}

func (r memAttemptRepo) Exists(_ context.Context, userID, problemID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.attempted(userID, problemID), nil
}

func (r memAttemptRepo) CountByUser(_ context.Context, userID string) (int, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total, correct int
	for _, a := range r.s.attempts {
		if a.UserID == userID {
			total++
			if a.IsCorrect {
				correct++
			}
		}
	}
	return total, correct, nil
}

// racingAttemptRepo reports no prior attempt, so the unique constraint is
// what catches the duplicate.
type racingAttemptRepo struct{ memAttemptRepo }

func (racingAttemptRepo) Exists(context.Context, string, string) (bool, error) { return false, nil }

// --- RatingHistoryRepository ---

type memHistoryRepo struct{ s *memStore }

func (r memHistoryRepo) CreateEntry(_ context.Context, _ *sql.Tx, e *model.RatingHistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failHistory != nil {
		return r.s.failHistory
	}
	e.RecordedAt = r.s.tick()
	r.s.history = append(r.s.history, *e)
	return nil
}

func (r memHistoryRepo) ListByUser(_ context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.RatingHistoryEntry{}
	for i := len(r.s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.history[i].UserID == userID {
			out = append(out, r.s.history[i])
		}
	}
	return out, nil
}

// --- LeaderboardRepository ---

type memBoardRepo struct{ s *memStore }

func (r memBoardRepo) SetRating(_ context.Context, userID string, rating int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failBoard != nil {
		return r.s.failBoard
	}
	r.s.board[userID] = rating
	return nil
}

func (r memBoardRepo) Remove(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failBoard != nil {
		return r.s.failBoard
	}
	delete(r.s.board, userID)
	return nil
}

func (r memBoardRepo) ReplaceRatings(_ context.Context, ratings []repository.RankedRating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failBoard != nil {
		return r.s.failBoard
	}
	r.s.board = map[string]int{}
	for _, rr := range ratings {
		r.s.board[rr.UserID] = rr.Rating
	}
	return nil
}

func (r memBoardRepo) Top(_ context.Context, limit int) ([]repository.RankedRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failBoard != nil {
		return nil, r.s.failBoard
	}
	var out []repository.RankedRating
	for id, rt := range r.s.board {
		out = append(out, repository.RankedRating{UserID: id, Rating: rt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- content.Source ---

type fakeContent struct {
	statements map[string]string
	full       map[string]string
	err        error
	fullCalls  int
}

func (c *fakeContent) Statement(_ context.Context, path string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	st, ok := c.statements[path]
	if !ok {
		return "", content.ErrNotFound
	}
	return st, nil
}

func (c *fakeContent) Full(_ context.Context, path string) (json.RawMessage, error) {
	c.fullCalls++
	if c.err != nil {
		return nil, c.err
	}
	doc, ok := c.full[path]
	if !ok {
		return nil, content.ErrNotFound
	}
	return json.RawMessage(doc), nil
}

// --- EventPublisher ---

type fakePublisher struct {
	events []model.RatingEvent
	err    error
}

func (p *fakePublisher) Push(_ context.Context, v interface{}) error {
	if p.err != nil {
		return p.err
	}
	ev, ok := v.(model.RatingEvent)
	if !ok {
		return errors.New("unexpected event type")
	}
	p.events = append(p.events, ev)
	return nil
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
