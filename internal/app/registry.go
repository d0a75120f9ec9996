package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"quizmaster-service/internal/clock"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/metrics"
	"quizmaster-service/internal/scoring"
)

const (
	maxPinAttempts = 100
	saveTimeout    = 30 * time.Second

	// DefaultLobbyIdleTimeout applies when RegistryConfig leaves it unset.
	DefaultLobbyIdleTimeout = 5 * time.Minute
)

var errPinsExhausted = errors.New("no free game pin")

// SessionRepository abstracts where live sessions are indexed (in-memory, Redis, etc).
type SessionRepository interface {
	// Insert stores s under pin unless the pin is already taken.
	Insert(pin string, s *Session) bool
	Get(pin string) (*Session, bool)
	// CompareAndDelete removes pin only while it still maps to s.
	CompareAndDelete(pin string, s *Session) bool
	List() []*Session
}

// ResultsStore persists the outcome of finished games.
type ResultsStore interface {
	SaveResults(ctx context.Context, results domain.GameResults) error
}

type RegistryConfig struct {
	Sessions SessionRepository
	Results  ResultsStore
	Notifier Notifier
	Clock    clock.Clock
	Timings  Timings
	// LobbyIdleTimeout is how long an empty lobby survives pruning.
	// Zero means DefaultLobbyIdleTimeout.
	LobbyIdleTimeout time.Duration
	Metrics          *metrics.Metrics
	// NewPin overrides pin generation; used by tests to force collisions.
	NewPin func() string
}

// Registry creates sessions under unique pins and owns their removal.
type Registry struct {
	sessions  SessionRepository
	results   ResultsStore
	notifier  Notifier
	clock     clock.Clock
	timings   Timings
	idleAfter time.Duration
	metrics   *metrics.Metrics
	newPin    func() string

	wg sync.WaitGroup
}

func NewRegistry(c RegistryConfig) *Registry {
	r := &Registry{
		sessions:  c.Sessions,
		results:   c.Results,
		notifier:  c.Notifier,
		clock:     c.Clock,
		timings:   c.Timings,
		idleAfter: c.LobbyIdleTimeout,
		metrics:   c.Metrics,
		newPin:    c.NewPin,
	}
	if r.clock == nil {
		r.clock = clock.Real{}
	}
	if r.timings == (Timings{}) {
		r.timings = DefaultTimings()
	}
	if r.idleAfter <= 0 {
		r.idleAfter = DefaultLobbyIdleTimeout
	}
	if r.newPin == nil {
		r.newPin = randomPin
	}
	return r
}

// randomPin draws a 6-digit number without a leading zero.
func randomPin() string {
	return strconv.Itoa(100000 + rand.Intn(900000))
}

// Create validates the quiz and registers a new lobby under a fresh pin.
func (r *Registry) Create(hostRef string, quiz domain.Quiz) (*Session, error) {
	keys, err := scoring.Keys(quiz)
	if err != nil {
		return nil, err
	}
	quiz.Questions = append([]domain.Question(nil), quiz.Questions...)

	for attempt := 0; attempt < maxPinAttempts; attempt++ {
		pin := r.newPin()
		s := newSession(sessionConfig{
			pin:      pin,
			hostRef:  hostRef,
			quiz:     quiz,
			keys:     keys,
			clock:    r.clock,
			notifier: r.notifier,
			timings:  r.timings,
			onClose:  r.sessionClosed,
		})
		if r.sessions.Insert(pin, s) {
			r.metrics.GameCreated()
			slog.Info("game created", "pin", pin, "quiz", quiz.Title, "questions", len(quiz.Questions))
			return s, nil
		}
		r.metrics.PinCollision()
	}
	return nil, fmt.Errorf("create game: %w", errPinsExhausted)
}

func (r *Registry) Get(pin string) (*Session, error) {
	s, ok := r.sessions.Get(pin)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return s, nil
}

// Remove detaches a session and cancels its timers. Unknown pins are ignored.
func (r *Registry) Remove(pin string) {
	s, ok := r.sessions.Get(pin)
	if !ok {
		return
	}
	r.sessions.CompareAndDelete(pin, s)
	if s.Close() {
		r.metrics.GameClosed()
	}
}

// PruneIdleLobbies terminates empty lobbies that have been idle for the
// configured timeout and returns how many were removed.
func (r *Registry) PruneIdleLobbies() int {
	now := r.clock.Now()
	n := 0
	for _, s := range r.sessions.List() {
		if s.terminateIfIdle(now, r.idleAfter, "Game closed due to inactivity") {
			n++
		}
	}
	if n > 0 {
		slog.Info("pruned idle lobbies", "count", n)
	}
	return n
}

// Wait blocks until every pending results handoff has completed.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// sessionClosed runs under the session lock; persistence happens off it.
func (r *Registry) sessionClosed(s *Session, results domain.GameResults, persist bool) {
	r.sessions.CompareAndDelete(s.pin, s)
	r.metrics.GameClosed()
	if !persist || r.results == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		err := r.results.SaveResults(ctx, results)
		r.metrics.ResultsSaved(err)
		if err != nil {
			slog.ErrorContext(ctx, "save results failed", "pin", results.GamePin, "err", err)
			return
		}
		slog.InfoContext(ctx, "results saved", "pin", results.GamePin, "players", len(results.Results))
	}()
}
