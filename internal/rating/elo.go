package rating

import (
	"math"

	"duel-tracker/internal/constants"
)

// ExpectedScore is the logistic win probability for self against opponent.
func ExpectedScore(self, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-self)/400))
}

// UpdatedRating applies one result to a rating. Rounding is half-to-even so
// a half-point result moves the rating to the nearest even value.
func UpdatedRating(old int, actual, expected float64, k int) int {
	return int(math.RoundToEven(float64(old) + float64(k)*(actual-expected)))
}

// BaseK is the K-factor before duel-specific boosts: provisional players
// move faster until they have played enough matches.
func BaseK(matches int) int {
	if matches < constants.ProvisionalMatches {
		return constants.KProvisional
	}
	return constants.KStandard
}
