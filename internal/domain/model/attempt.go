package model

import "time"

type Attempt struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ProblemID    *string   `json:"problem_id"` // nil once the problem is deleted
	UserAnswer   string    `json:"user_answer"`
	IsCorrect    bool      `json:"is_correct"`
	RatingChange int       `json:"rating_change"`
	AttemptedAt  time.Time `json:"attempted_at"`
}

type RatingHistoryEntry struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	ProblemAttemptID *string   `json:"problem_attempt_id"`
	OldRating        int       `json:"old_rating"`
	RatingChange     int       `json:"rating_change"`
	NewRating        int       `json:"new_rating"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// RatingEvent is published after a rating change is committed.
type RatingEvent struct {
	UserID     string    `json:"user_id"`
	NewRating  int       `json:"new_rating"`
	RecordedAt time.Time `json:"recorded_at"`
}
