package scoring

import (
	"sort"

	"quizmaster-service/internal/domain"
)

// Leaderboard ranks players by score, highest first. players must be in join
// order: equal scores keep that order, so whoever joined first ranks first.
func Leaderboard(players []*domain.Player) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

// Top returns at most the first n entries.
func Top(entries []domain.LeaderboardEntry, n int) []domain.LeaderboardEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[:n]
}
