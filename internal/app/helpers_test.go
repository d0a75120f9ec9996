package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizmaster-service/internal/clock"
	"quizmaster-service/internal/domain"
)

var epoch = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events map[string][]domain.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]domain.Event)}
}

func (r *recorder) Notify(connID string, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[connID] = append(r.events[connID], ev)
}

func (r *recorder) names(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events[connID]))
	for _, ev := range r.events[connID] {
		out = append(out, ev.Name())
	}
	return out
}

func (r *recorder) count(connID, name string) int {
	n := 0
	for _, got := range r.names(connID) {
		if got == name {
			n++
		}
	}
	return n
}

// last returns the most recent event named name sent to connID.
func (r *recorder) last(connID, name string) domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.events[connID]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Name() == name {
			return evs[i]
		}
	}
	return nil
}

type savedResults struct {
	mu      sync.Mutex
	results []domain.GameResults
}

func (s *savedResults) SaveResults(_ context.Context, r domain.GameResults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *savedResults) list() []domain.GameResults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.GameResults(nil), s.results...)
}

// mapSessions is a minimal SessionRepository for tests in this package.
type mapSessions struct {
	mu sync.Mutex
	m  map[string]*Session
}

func newMapSessions() *mapSessions {
	return &mapSessions{m: make(map[string]*Session)}
}

func (r *mapSessions) Insert(pin string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[pin]; ok {
		return false
	}
	r.m[pin] = s
	return true
}

func (r *mapSessions) Get(pin string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[pin]
	return s, ok
}

func (r *mapSessions) CompareAndDelete(pin string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m[pin] != s {
		return false
	}
	delete(r.m, pin)
	return true
}

func (r *mapSessions) Delete(pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, pin)
}

func (r *mapSessions) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.m))
	for _, s := range r.m {
		out = append(out, s)
	}
	return out
}

type fixture struct {
	registry *Registry
	clock    *clock.Fake
	notes    *recorder
	results  *savedResults
	sessions *mapSessions
}

func newFixture(t *testing.T, mutate ...func(*RegistryConfig)) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clock.NewFake(epoch),
		notes:    newRecorder(),
		results:  &savedResults{},
		sessions: newMapSessions(),
	}
	cfg := RegistryConfig{
		Sessions: f.sessions,
		Results:  f.results,
		Notifier: f.notes,
		Clock:    f.clock,
		Timings:  DefaultTimings(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	f.registry = NewRegistry(cfg)
	return f
}

// lobby creates a game hosted by "host" with the given players joined.
func (f *fixture) lobby(t *testing.T, quiz domain.Quiz, players ...string) *Session {
	t.Helper()
	s, err := f.registry.Create("host", quiz)
	require.NoError(t, err)
	for _, id := range players {
		require.NoError(t, s.AddPlayer(id, "name-"+id), id)
	}
	return s
}

func choiceQuestion(d domain.Difficulty) domain.Question {
	return domain.Question{
		Text:          "What is 2 + 2?",
		Type:          domain.MultipleChoice,
		Difficulty:    d,
		Options:       []string{"3", "4", "5"},
		CorrectAnswer: json.RawMessage(`1`),
	}
}

func quizOf(questions ...domain.Question) domain.Quiz {
	return domain.Quiz{ID: "quiz-1", Title: "Arithmetic", Questions: questions}
}
