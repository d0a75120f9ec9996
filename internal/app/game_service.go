package app

import (
	"context"
	"encoding/json"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/metrics"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// HostJoinRequest carries either an inline quiz or the id of a stored one.
type HostJoinRequest struct {
	Quiz   *domain.Quiz
	QuizID string
}

// GameService contains the inbound game commands. Connection ids double as
// host references and player ids.
type GameService struct {
	registry *Registry
	quizzes  QuizRepository
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewGameService(registry *Registry, quizzes QuizRepository, notifier Notifier, m *metrics.Metrics) *GameService {
	return &GameService{registry: registry, quizzes: quizzes, notifier: notifier, metrics: m}
}

// HostJoin creates a game hosted by hostRef and replies with its pin.
func (s *GameService) HostJoin(ctx context.Context, hostRef string, req HostJoinRequest) (string, error) {
	quiz := req.Quiz
	if quiz == nil {
		if req.QuizID == "" || s.quizzes == nil {
			return "", domain.ErrQuizNotFound
		}
		loaded, err := s.quizzes.GetQuiz(ctx, req.QuizID)
		if err != nil {
			return "", err
		}
		quiz = &loaded
	}

	session, err := s.registry.Create(hostRef, *quiz)
	if err != nil {
		return "", err
	}
	s.notifier.Notify(hostRef, domain.GameCreated{Pin: session.Pin(), Title: quiz.Title})
	return session.Pin(), nil
}

// PlayerJoin adds playerID to the lobby of pin.
func (s *GameService) PlayerJoin(_ context.Context, pin, playerID, name string) error {
	session, err := s.registry.Get(pin)
	if err != nil {
		return err
	}
	return session.AddPlayer(playerID, name)
}

// StartGame starts the game. Only the host may start it.
func (s *GameService) StartGame(_ context.Context, pin, connID string) error {
	session, err := s.hostSession(pin, connID)
	if err != nil {
		return err
	}
	return session.Start()
}

// SubmitAnswer forwards an answer to the session. Rejected submissions are
// dropped silently.
func (s *GameService) SubmitAnswer(_ context.Context, pin, playerID string, answer json.RawMessage, declaredType domain.QuestionType) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return
	}
	if rec, ok := session.SubmitAnswer(playerID, answer, declaredType); ok {
		s.metrics.AnswerRecorded(rec.IsCorrect)
	}
}

// NextQuestion is the host's manual skip.
func (s *GameService) NextQuestion(_ context.Context, pin, connID string) error {
	session, err := s.hostSession(pin, connID)
	if err != nil {
		return err
	}
	session.NextQuestion()
	return nil
}

// Disconnect tears the game down when the host leaves and otherwise removes
// the player. Idle lobbies are pruned on the way out.
func (s *GameService) Disconnect(_ context.Context, pin, connID string) {
	if session, err := s.registry.Get(pin); err == nil {
		if connID == session.HostRef() {
			session.Terminate("Host disconnected")
		} else {
			session.RemovePlayer(connID)
		}
	}
	s.registry.PruneIdleLobbies()
}

func (s *GameService) hostSession(pin, connID string) (*Session, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return nil, err
	}
	if session.HostRef() != connID {
		return nil, domain.ErrNotHost
	}
	return session, nil
}
