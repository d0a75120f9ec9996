package app

import (
	"time"

	"quizmaster-service/internal/clock"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/scoring"
)

// Timings are the fixed delays of the question cycle.
type Timings struct {
	// EarlyEndGrace separates "everyone answered" from the reveal.
	EarlyEndGrace time.Duration
	// RevealDelay is how long the correct answer is shown before the leaderboard.
	RevealDelay time.Duration
	// AdvanceDelay is how long the leaderboard is shown before the next question.
	AdvanceDelay time.Duration
	// StartDelay postpones the first question after game-starting. Zero starts immediately.
	StartDelay time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		EarlyEndGrace: time.Second,
		RevealDelay:   3 * time.Second,
		AdvanceDelay:  3 * time.Second,
	}
}

type timerKind int

const (
	deadlineTimer timerKind = iota
	graceTimer
	revealTimer
	advanceTimer
	numTimers
)

// timerSet holds at most one pending handle per purpose.
type timerSet struct {
	handles [numTimers]clock.Timer
}

// arm cancels any pending handle of the same kind before scheduling f.
func (t *timerSet) arm(c clock.Clock, kind timerKind, d time.Duration, f func()) {
	t.cancel(kind)
	t.handles[kind] = c.AfterFunc(d, f)
}

func (t *timerSet) cancel(kind timerKind) {
	if h := t.handles[kind]; h != nil {
		h.Stop()
		t.handles[kind] = nil
	}
}

func (t *timerSet) cancelAll() {
	for kind := range t.handles {
		t.cancel(timerKind(kind))
	}
}

func (t *timerSet) pending(kind timerKind) bool {
	return t.handles[kind] != nil
}

// scheduleDeadlineLocked arms the timeout path for question idx.
func (s *Session) scheduleDeadlineLocked(idx int, d time.Duration) {
	s.timers.arm(s.clock, deadlineTimer, d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != domain.StateQuestion || s.currentIndex != idx {
			return
		}
		s.timers.handles[deadlineTimer] = nil
		s.endQuestionLocked()
	})
}

// scheduleEarlyEndLocked arms the early-termination path for question idx.
// An already pending grace period is left running.
func (s *Session) scheduleEarlyEndLocked(idx int) {
	if s.timers.pending(graceTimer) {
		return
	}
	s.timers.arm(s.clock, graceTimer, s.timings.EarlyEndGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != domain.StateQuestion || s.currentIndex != idx {
			return
		}
		s.timers.handles[graceTimer] = nil
		s.endQuestionLocked()
	})
}

// scheduleRevealLocked runs the reveal pause, the mid-game leaderboard, the
// advance pause and finally the next question or the end of the game.
func (s *Session) scheduleRevealLocked() {
	stage := s.stage
	s.timers.arm(s.clock, revealTimer, s.timings.RevealDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != domain.StateRevealing || s.stage != stage {
			return
		}
		s.timers.handles[revealTimer] = nil
		top := scoring.Top(scoring.Leaderboard(s.playersLocked()), leaderboardSize)
		s.broadcastLocked(domain.QuestionEnd{Leaderboard: top})

		s.timers.arm(s.clock, advanceTimer, s.timings.AdvanceDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.state != domain.StateRevealing || s.stage != stage {
				return
			}
			s.timers.handles[advanceTimer] = nil
			s.advanceOrFinishLocked()
		})
	})
}

// scheduleFirstQuestionLocked delays the first question by StartDelay.
func (s *Session) scheduleFirstQuestionLocked() {
	stage := s.stage
	s.timers.arm(s.clock, advanceTimer, s.timings.StartDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != domain.StateStarting || s.stage != stage {
			return
		}
		s.timers.handles[advanceTimer] = nil
		s.advanceOrFinishLocked()
	})
}
