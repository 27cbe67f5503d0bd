// Package rating holds the answer-checking and rating rules used when a
// user submits an answer and when the next problem is chosen.
package rating

import "strings"

const (
	// Step is the rating gained for a correct answer and lost for a wrong one.
	Step = 10

	// WindowBelow and WindowAbove bound the first-phase selection window
	// around the user's rating. The window leans towards harder problems.
	WindowBelow = 50
	WindowAbove = 100
)

// NormalizeAnswer trims surrounding whitespace and lowercases s.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsCorrect compares a submitted answer against the stored one after
// normalizing both. A problem without a stored answer is never matched.
func IsCorrect(submitted string, stored *string) bool {
	if stored == nil {
		return false
	}
	return NormalizeAnswer(submitted) == NormalizeAnswer(*stored)
}

// Change returns the rating delta for an attempt.
func Change(correct bool) int {
	if correct {
		return Step
	}
	return -Step
}

// Window returns the inclusive effective-rating range searched first for a
// user rated r.
func Window(r int) (lo, hi int) {
	return r - WindowBelow, r + WindowAbove
}
