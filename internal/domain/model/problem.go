package model

import (
	"time"
)

type ProblemFormat string

const (
	FormatShortAnswer    ProblemFormat = "short-answer"
	FormatProof          ProblemFormat = "proof"
	FormatMultipleChoice ProblemFormat = "multiple-choice"
)

// DefaultRating is the rating of a new user and of a problem with no rating.
const DefaultRating = 1200

func (f ProblemFormat) Valid() bool {
	switch f {
	case FormatShortAnswer, FormatProof, FormatMultipleChoice:
		return true
	}
	return false
}

type Problem struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	Hyperlink   string        `json:"hyperlink"`
	Keyphrase   string        `json:"keyphrase"`
	ContentPath string        `json:"content_path"`
	Format      ProblemFormat `json:"format"`
	Answer      *string       `json:"-"` // never sent before an attempt
	Rating      *int          `json:"rating"`
	Author      string        `json:"author"`
	CreatedAt   time.Time     `json:"created_at"`
}

// EffectiveRating treats an unset rating as DefaultRating.
func (p *Problem) EffectiveRating() int {
	if p.Rating == nil {
		return DefaultRating
	}
	return *p.Rating
}
