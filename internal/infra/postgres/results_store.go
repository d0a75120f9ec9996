package postgres

import (
	"context"
	"fmt"
	"time"

	"quizmaster-service/internal/domain"
	"github.com/uptrace/bun"
)

type gameResultRow struct {
	bun.BaseModel `bun:"table:game_results"`

	ID        int64                  `bun:"id,pk,autoincrement"`
	GamePin   string                 `bun:"game_pin,notnull"`
	QuizTitle string                 `bun:"quiz_title,notnull"`
	Results   []domain.PlayerOutcome `bun:"results,type:jsonb,notnull"`
	StartTime time.Time              `bun:"start_time,notnull"`
	EndTime   time.Time              `bun:"end_time,notnull"`
}

// ResultsStore persists finished games into game_results.
type ResultsStore struct {
	db *bun.DB
}

func NewResultsStore(db *bun.DB) *ResultsStore {
	return &ResultsStore{db: db}
}

func (s *ResultsStore) SaveResults(ctx context.Context, results domain.GameResults) error {
	row := &gameResultRow{
		GamePin:   results.GamePin,
		QuizTitle: results.QuizTitle,
		Results:   results.Results,
		StartTime: results.StartTime,
		EndTime:   results.EndTime,
	}
	if row.Results == nil {
		row.Results = []domain.PlayerOutcome{}
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert game results %s: %w", results.GamePin, err)
	}
	return nil
}

// ByPin returns every stored game played under pin, oldest first. The server
// only writes results; this is the read side for the integration test.
func (s *ResultsStore) ByPin(ctx context.Context, pin string) ([]domain.GameResults, error) {
	var rows []gameResultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("game_pin = ?", pin).
		Order("end_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select game results %s: %w", pin, err)
	}
	out := make([]domain.GameResults, len(rows))
	for i, row := range rows {
		out[i] = domain.GameResults{
			QuizTitle: row.QuizTitle,
			GamePin:   row.GamePin,
			Results:   row.Results,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
		}
	}
	return out, nil
}
