package scoring

import "quizmaster-service/internal/domain"

// AnswerStatistics tallies the answers written at questionIndex. Players
// without a record at that index count towards TotalPlayers only.
func AnswerStatistics(key Key, players []*domain.Player, questionIndex int) domain.AnswerStatistics {
	stats := domain.AnswerStatistics{
		TotalPlayers: len(players),
		AnswerCounts: make(map[string]int),
	}
	for _, bucket := range key.InitialBuckets() {
		stats.AnswerCounts[bucket] = 0
	}
	for _, p := range players {
		if questionIndex < 0 || questionIndex >= len(p.Answers) || p.Answers[questionIndex] == nil {
			continue
		}
		stats.AnsweredPlayers++
		for _, bucket := range key.Buckets(p.Answers[questionIndex].Value) {
			stats.AnswerCounts[bucket]++
		}
	}
	return stats
}
