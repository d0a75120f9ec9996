package memory

import (
	"context"
	"sync"

	"quizmaster-service/internal/domain"
)

// ResultsStore keeps finished games in memory. Used when no database is configured.
type ResultsStore struct {
	mu      sync.Mutex
	results []domain.GameResults
}

func NewResultsStore() *ResultsStore {
	return &ResultsStore{}
}

func (s *ResultsStore) SaveResults(_ context.Context, results domain.GameResults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results)
	return nil
}

// List returns the stored results in save order.
func (s *ResultsStore) List() []domain.GameResults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.GameResults(nil), s.results...)
}
