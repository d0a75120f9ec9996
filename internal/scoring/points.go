package scoring

import "quizmaster-service/internal/domain"

const (
	basePointsPerLevel = 100
	// BonusWindowMs is the horizon within which faster answers earn a bonus.
	BonusWindowMs = 10000
)

// Multiplier returns the difficulty scalar, 2 when unset or unknown.
func Multiplier(d domain.Difficulty) int {
	switch d {
	case domain.Easy:
		return 1
	case domain.Hard:
		return 3
	default:
		return 2
	}
}

// Points awards base points plus a time bonus for a correct answer and zero
// otherwise. The bonus shrinks linearly over BonusWindowMs.
func Points(q domain.Question, correct bool, elapsedMs int64) int {
	if !correct {
		return 0
	}
	m := int64(Multiplier(q.Difficulty))
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	timeBonus := max(0, BonusWindowMs-elapsedMs)
	return int(basePointsPerLevel*m + timeBonus*m/10)
}
