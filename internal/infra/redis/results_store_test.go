package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizmaster-service/internal/domain"
)

func TestResultsStoreSavesAndIndexes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewResultsStore(newClient(mr), 0)
	ctx := context.Background()
	start := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	first := domain.GameResults{
		QuizTitle: "Arithmetic",
		GamePin:   "123456",
		Results:   []domain.PlayerOutcome{{Name: "Ana", Score: 1800}},
		StartTime: start,
		EndTime:   start.Add(time.Minute),
	}
	second := first
	second.EndTime = start.Add(2 * time.Minute)
	second.Results = []domain.PlayerOutcome{{Name: "Bo", Score: 300}}

	for _, r := range []domain.GameResults{first, second} {
		if err := store.SaveResults(ctx, r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	members, err := mr.ZMembers(resultsIndexKey)
	if err != nil {
		t.Fatalf("zmembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected two indexed games for a reused pin, got %v", members)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Results[0].Name != "Bo" || recent[1].Results[0].Name != "Ana" {
		t.Fatalf("expected newest first, got %+v", recent)
	}
}
