package app

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"quizmaster-service/internal/clock"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/scoring"
)

// Mid-game leaderboards are truncated to this many entries.
const leaderboardSize = 5

// Notifier pushes events to a single connection. Implementations must not
// block: sessions notify while holding their lock.
type Notifier interface {
	Notify(connID string, ev domain.Event)
}

// closeHook is invoked exactly once per session, under the session lock, when
// the session reaches the finished state. persist reports whether the game
// got past its lobby and its results should be stored.
type closeHook func(s *Session, results domain.GameResults, persist bool)

// Session is one live game. All state is guarded by mu; timer callbacks take
// the lock and re-check state before acting.
type Session struct {
	pin      string
	hostRef  string
	quiz     domain.Quiz
	keys     []scoring.Key
	clock    clock.Clock
	notifier Notifier
	timings  Timings
	onClose  closeHook

	mu                sync.Mutex
	state             domain.GameState
	players           map[string]*domain.Player
	order             []string
	currentIndex      int
	questionStartedAt time.Time
	startedAt         time.Time
	endedAt           time.Time
	lastActivity      time.Time
	advancing         bool
	timers            timerSet
	stage             uint64
}

type sessionConfig struct {
	pin      string
	hostRef  string
	quiz     domain.Quiz
	keys     []scoring.Key
	clock    clock.Clock
	notifier Notifier
	timings  Timings
	onClose  closeHook
}

func newSession(c sessionConfig) *Session {
	return &Session{
		pin:          c.pin,
		hostRef:      c.hostRef,
		quiz:         c.quiz,
		keys:         c.keys,
		clock:        c.clock,
		notifier:     c.notifier,
		timings:      c.timings,
		onClose:      c.onClose,
		state:        domain.StateLobby,
		players:      make(map[string]*domain.Player),
		currentIndex: -1,
		lastActivity: c.clock.Now(),
	}
}

func (s *Session) Pin() string { return s.pin }

func (s *Session) HostRef() string { return s.hostRef }

func (s *Session) Quiz() domain.Quiz { return s.quiz }

func (s *Session) State() domain.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentQuestionIndex is -1 until the first question starts.
func (s *Session) CurrentQuestionIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// Player returns a copy of a player's current state.
func (s *Session) Player(id string) (domain.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return domain.Player{}, false
	}
	cp := *p
	cp.Answers = append([]*domain.AnswerRecord(nil), p.Answers...)
	return cp, true
}

// Leaderboard returns the full ranking.
func (s *Session) Leaderboard() []domain.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scoring.Leaderboard(s.playersLocked())
}

// AddPlayer registers a player while the game is in its lobby, acknowledges
// the join and updates everyone's player list. A known id refreshes the
// player's name.
func (s *Session) AddPlayer(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > domain.MaxNameLength {
		return domain.ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return domain.ErrGameAlreadyStarted
	}
	if p, ok := s.players[id]; ok {
		p.Name = name
	} else {
		s.players[id] = &domain.Player{
			ID:      id,
			Name:    name,
			Answers: make([]*domain.AnswerRecord, len(s.quiz.Questions)),
		}
		s.order = append(s.order, id)
	}
	s.lastActivity = s.clock.Now()
	s.notifyLocked(id, domain.PlayerJoined{Pin: s.pin, PlayerName: name})
	s.broadcastLocked(s.playerListLocked())
	return nil
}

// RemovePlayer drops a player. If everyone left in a live question has
// answered, the question ends early.
func (s *Session) RemovePlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.lastActivity = s.clock.Now()

	if s.state == domain.StateFinished {
		return true
	}
	s.broadcastLocked(s.playerListLocked())
	if s.state == domain.StateQuestion && s.allAnsweredLocked() {
		s.scheduleEarlyEndLocked(s.currentIndex)
	}
	return true
}

// Start leaves the lobby and kicks off the first question.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return domain.ErrGameAlreadyStarted
	}
	s.state = domain.StateStarting
	s.startedAt = s.clock.Now()
	s.lastActivity = s.startedAt
	s.broadcastLocked(domain.GameStarting{})
	slog.Info("game starting", "pin", s.pin, "players", len(s.players), "questions", len(s.quiz.Questions))

	if s.timings.StartDelay > 0 {
		s.scheduleFirstQuestionLocked()
		return nil
	}
	s.advanceOrFinishLocked()
	return nil
}

// Advance moves to the next question. It returns false when another advance
// is in flight or when the questions are exhausted; in the latter case the
// caller must Finish.
func (s *Session) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

func (s *Session) advanceLocked() bool {
	if s.advancing || s.state == domain.StateFinished {
		return false
	}
	s.advancing = true
	defer func() { s.advancing = false }()

	s.currentIndex++
	if s.currentIndex >= len(s.quiz.Questions) {
		return false
	}

	q := s.quiz.Questions[s.currentIndex]
	s.state = domain.StateQuestion
	s.questionStartedAt = s.clock.Now()
	s.lastActivity = s.questionStartedAt
	s.stage++
	s.timers.cancel(graceTimer)
	s.timers.cancel(revealTimer)
	s.timers.cancel(advanceTimer)
	s.scheduleDeadlineLocked(s.currentIndex, q.Duration())

	timeLimit := q.TimeLimit
	if timeLimit <= 0 {
		timeLimit = domain.DefaultTimeLimit
	}
	s.broadcastLocked(domain.QuestionStart{
		QuestionNumber: s.currentIndex + 1,
		TotalQuestions: len(s.quiz.Questions),
		Question:       q.Text,
		Options:        q.Options,
		Type:           q.Type,
		Image:          q.Image,
		TimeLimit:      timeLimit,
	})
	return true
}

// advanceOrFinishLocked advances and finishes the game once the questions run out.
func (s *Session) advanceOrFinishLocked() {
	if s.advanceLocked() {
		return
	}
	if s.currentIndex >= len(s.quiz.Questions) {
		s.finishLocked()
	}
}

// SubmitAnswer scores and records a player's answer to the live question.
// Submissions outside a live question, from unknown players, or for an
// already answered question are dropped and report false.
func (s *Session) SubmitAnswer(playerID string, value json.RawMessage, declaredType domain.QuestionType) (domain.AnswerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateQuestion {
		return domain.AnswerRecord{}, false
	}
	p, ok := s.players[playerID]
	if !ok {
		return domain.AnswerRecord{}, false
	}
	idx := s.currentIndex
	if p.Answers[idx] != nil {
		return domain.AnswerRecord{}, false
	}

	q := s.quiz.Questions[idx]
	key := s.keys[idx]
	if declaredType != "" && declaredType != key.Type() {
		slog.Debug("answer type mismatch", "pin", s.pin, "player", playerID, "declared", declaredType, "actual", key.Type())
	}

	now := s.clock.Now()
	elapsed := max(0, now.Sub(s.questionStartedAt).Milliseconds())
	correct := key.Correct(value)
	rec := &domain.AnswerRecord{
		Value:     append(json.RawMessage(nil), value...),
		IsCorrect: correct,
		Points:    scoring.Points(q, correct, elapsed),
		ElapsedMs: elapsed,
	}
	p.Answers[idx] = rec
	p.Score += rec.Points
	s.lastActivity = now

	s.notifyLocked(playerID, domain.AnswerSubmitted{Answer: rec.Value})
	s.notifyLocked(s.hostRef, domain.AnswerProgress{Answered: s.answeredLocked(), Total: len(s.players)})
	if s.allAnsweredLocked() {
		s.scheduleEarlyEndLocked(idx)
	}
	return *rec, true
}

// EndQuestion closes the live question, reveals the answer and statistics,
// and schedules the reveal sequence. It reports false when no question is live.
func (s *Session) EndQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endQuestionLocked()
}

func (s *Session) endQuestionLocked() bool {
	if s.state != domain.StateQuestion {
		return false
	}
	s.state = domain.StateRevealing
	s.timers.cancel(deadlineTimer)
	s.timers.cancel(graceTimer)

	idx := s.currentIndex
	key := s.keys[idx]
	correctAnswer, correctOption := key.Reveal()
	s.broadcastLocked(domain.QuestionTimeout{
		CorrectAnswer: correctAnswer,
		CorrectOption: correctOption,
		QuestionType:  key.Type(),
	})

	players := s.playersLocked()
	s.notifyLocked(s.hostRef, scoring.AnswerStatistics(key, players, idx))
	for _, p := range players {
		result := domain.PlayerResult{TotalScore: p.Score}
		if rec := p.Answers[idx]; rec != nil {
			result.IsCorrect = rec.IsCorrect
			result.Points = rec.Points
		}
		s.notifyLocked(p.ID, result)
	}

	s.scheduleRevealLocked()
	return true
}

// NextQuestion is the host's manual override. A live question is ended first;
// pending reveal timers are cancelled and the game advances or finishes.
func (s *Session) NextQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.advancing {
		return false
	}
	switch s.state {
	case domain.StateQuestion:
		s.endQuestionLocked()
	case domain.StateRevealing:
	default:
		return false
	}
	s.timers.cancel(revealTimer)
	s.timers.cancel(advanceTimer)
	s.stage++
	s.advanceOrFinishLocked()
	return true
}

// Finish ends the game normally: final leaderboard, results handoff and
// game-end. A second call is a no-op and reports false.
func (s *Session) Finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishLocked()
}

func (s *Session) finishLocked() bool {
	if s.state == domain.StateFinished {
		return false
	}
	s.closeLocked()
	s.broadcastLocked(domain.GameEnd{Leaderboard: scoring.Leaderboard(s.playersLocked())})
	slog.Info("game finished", "pin", s.pin, "players", len(s.players))
	s.onClose(s, s.resultsLocked(), true)
	return true
}

// Terminate force-ends the game, e.g. when the host disconnects. Results are
// stored if the game had started. It is a no-op once the game is finished.
func (s *Session) Terminate(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminateLocked(reason)
}

func (s *Session) terminateLocked(reason string) bool {
	if s.state == domain.StateFinished {
		return false
	}
	persist := s.state != domain.StateLobby
	s.closeLocked()
	s.broadcastLocked(domain.GameEnded{Reason: reason})
	slog.Info("game terminated", "pin", s.pin, "reason", reason)
	s.onClose(s, s.resultsLocked(), persist)
	return true
}

// Close cancels every timer and marks the session finished without
// notifying anyone or storing results. It reports false if already finished.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateFinished {
		return false
	}
	s.closeLocked()
	return true
}

func (s *Session) closeLocked() {
	s.timers.cancelAll()
	s.stage++
	s.state = domain.StateFinished
	s.endedAt = s.clock.Now()
}

// terminateIfIdle terminates an empty lobby untouched for at least idleAfter.
func (s *Session) terminateIfIdle(now time.Time, idleAfter time.Duration, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateLobby || len(s.players) > 0 || now.Sub(s.lastActivity) < idleAfter {
		return false
	}
	return s.terminateLocked(reason)
}

func (s *Session) resultsLocked() domain.GameResults {
	players := s.playersLocked()
	outcomes := make([]domain.PlayerOutcome, 0, len(players))
	for _, p := range players {
		outcomes = append(outcomes, domain.PlayerOutcome{
			Name:    p.Name,
			Score:   p.Score,
			Answers: append([]*domain.AnswerRecord(nil), p.Answers...),
		})
	}
	return domain.GameResults{
		QuizTitle: s.quiz.Title,
		GamePin:   s.pin,
		Results:   outcomes,
		StartTime: s.startedAt,
		EndTime:   s.endedAt,
	}
}

// playersLocked returns the players in join order.
func (s *Session) playersLocked() []*domain.Player {
	out := make([]*domain.Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.players[id])
	}
	return out
}

func (s *Session) playerListLocked() domain.PlayerListUpdate {
	list := make([]domain.PlayerSummary, 0, len(s.order))
	for _, p := range s.playersLocked() {
		list = append(list, domain.PlayerSummary{ID: p.ID, Name: p.Name})
	}
	return domain.PlayerListUpdate{Players: list}
}

func (s *Session) answeredLocked() int {
	n := 0
	for _, p := range s.players {
		if p.Answers[s.currentIndex] != nil {
			n++
		}
	}
	return n
}

// allAnsweredLocked requires at least one player; an empty question runs to its deadline.
func (s *Session) allAnsweredLocked() bool {
	return len(s.players) > 0 && s.answeredLocked() == len(s.players)
}

func (s *Session) notifyLocked(connID string, ev domain.Event) {
	if connID == "" {
		return
	}
	s.notifier.Notify(connID, ev)
}

// broadcastLocked notifies the host and every player.
func (s *Session) broadcastLocked(ev domain.Event) {
	s.notifyLocked(s.hostRef, ev)
	for _, id := range s.order {
		s.notifyLocked(id, ev)
	}
}
