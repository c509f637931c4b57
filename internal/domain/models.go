package domain

import (
	"fmt"
	"strings"
	"time"
)

type Player struct {
	ID         string
	Rating     int
	Matches    int
	Streak     int
	LastActive time.Time
}

type Duel struct {
	ID        int64
	UserA     string
	UserB     string
	Winner    string
	Loser     string
	IsDraw    bool
	TeamSizeA int
	TeamSizeB int
	Margin    int
	Flagged   bool
	Timestamp time.Time
}

type MonthlyTop struct {
	Month    string
	PlayerID string
	Rating   int
}

// RatingChange records one side's before/after rating for a resolved duel.
type RatingChange struct {
	ID        string
	DuelID    int64
	PlayerID  string
	Before    int
	After     int
	CreatedAt time.Time
}

// Outcome is a duel result from the first participant's perspective.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToLower(strings.TrimSpace(s))) {
	case OutcomeWin:
		return OutcomeWin, nil
	case OutcomeLose:
		return OutcomeLose, nil
	case OutcomeDraw:
		return OutcomeDraw, nil
	default:
		return "", fmt.Errorf("%w: outcome must be win, lose or draw, got %q", ErrValidation, s)
	}
}

// Scores maps the outcome to actual scores for (self, opponent).
func (o Outcome) Scores() (float64, float64) {
	switch o {
	case OutcomeWin:
		return 1, 0
	case OutcomeLose:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}
