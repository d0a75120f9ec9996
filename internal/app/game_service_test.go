package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizmaster-service/internal/domain"
)

type stubQuizzes map[string]domain.Quiz

func (s stubQuizzes) GetQuiz(_ context.Context, id string) (domain.Quiz, error) {
	if q, ok := s[id]; ok {
		return q, nil
	}
	return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
}

func newService(f *fixture) *GameService {
	quizzes := stubQuizzes{"quiz-1": quizOf(choiceQuestion(domain.Medium), choiceQuestion(domain.Hard))}
	return NewGameService(f.registry, quizzes, f.notes, nil)
}

func TestHostJoin(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	ctx := context.Background()

	pin, err := svc.HostJoin(ctx, "host", HostJoinRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	created, ok := f.notes.last("host", domain.EventGameCreated).(domain.GameCreated)
	require.True(t, ok)
	require.Equal(t, pin, created.Pin)
	require.Equal(t, "Arithmetic", created.Title)

	inline := quizOf(choiceQuestion(domain.Easy))
	inline.Title = "Inline"
	_, err = svc.HostJoin(ctx, "host-2", HostJoinRequest{Quiz: &inline})
	require.NoError(t, err)

	_, err = svc.HostJoin(ctx, "host-3", HostJoinRequest{QuizID: "missing"})
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
	_, err = svc.HostJoin(ctx, "host-4", HostJoinRequest{})
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
}

func TestHostOnlyCommands(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	ctx := context.Background()

	pin, err := svc.HostJoin(ctx, "host", HostJoinRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	require.NoError(t, svc.PlayerJoin(ctx, pin, "p1", "Ana"))

	require.ErrorIs(t, svc.StartGame(ctx, pin, "p1"), domain.ErrNotHost)
	require.ErrorIs(t, svc.StartGame(ctx, "000000", "host"), domain.ErrGameNotFound)
	require.NoError(t, svc.StartGame(ctx, pin, "host"))
	require.ErrorIs(t, svc.StartGame(ctx, pin, "host"), domain.ErrGameAlreadyStarted)

	require.ErrorIs(t, svc.NextQuestion(ctx, pin, "p1"), domain.ErrNotHost)
	require.NoError(t, svc.NextQuestion(ctx, pin, "host"))

	s, err := f.registry.Get(pin)
	require.NoError(t, err)
	require.Equal(t, 1, s.CurrentQuestionIndex())
}

func TestPlayerJoinErrors(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	ctx := context.Background()

	require.ErrorIs(t, svc.PlayerJoin(ctx, "000000", "p1", "Ana"), domain.ErrGameNotFound)

	pin, err := svc.HostJoin(ctx, "host", HostJoinRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	require.ErrorIs(t, svc.PlayerJoin(ctx, pin, "p1", ""), domain.ErrInvalidName)
}

func TestHostDisconnectMidQuestion(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	ctx := context.Background()

	pin, err := svc.HostJoin(ctx, "host", HostJoinRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	require.NoError(t, svc.PlayerJoin(ctx, pin, "p1", "Ana"))
	require.NoError(t, svc.PlayerJoin(ctx, pin, "p2", "Bo"))
	require.NoError(t, svc.StartGame(ctx, pin, "host"))

	f.clock.Advance(2 * time.Second)
	svc.SubmitAnswer(ctx, pin, "p1", json.RawMessage(`1`), domain.MultipleChoice)

	svc.Disconnect(ctx, pin, "host")
	svc.Disconnect(ctx, pin, "host")
	f.clock.Advance(time.Minute)

	for _, id := range []string{"p1", "p2"} {
		require.Equal(t, 1, f.notes.count(id, domain.EventGameEnded), id)
		require.Zero(t, f.notes.count(id, domain.EventGameEnd), id)
	}
	_, err = f.registry.Get(pin)
	require.ErrorIs(t, err, domain.ErrGameNotFound)

	f.registry.Wait()
	results := f.results.list()
	require.Len(t, results, 1)
	require.Equal(t, pin, results[0].GamePin)
	require.Equal(t, 1800, results[0].Results[0].Score)
	require.Equal(t, epoch.Add(2*time.Second), results[0].EndTime)
	require.Zero(t, f.clock.Pending())
}

func TestHostDisconnectInLobbyDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	ctx := context.Background()

	pin, err := svc.HostJoin(ctx, "host", HostJoinRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	require.NoError(t, svc.PlayerJoin(ctx, pin, "p1", "Ana"))

	svc.Disconnect(ctx, pin, "p1")
	list, ok := f.notes.last("host", domain.EventPlayerListUpdate).(domain.PlayerListUpdate)
	require.True(t, ok)
	require.Empty(t, list.Players)

	svc.Disconnect(ctx, pin, "host")
	_, err = f.registry.Get(pin)
	require.ErrorIs(t, err, domain.ErrGameNotFound)

	f.registry.Wait()
	require.Empty(t, f.results.list())
}

func TestFreshLobbySurvivesUnrelatedDisconnect(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	ctx := context.Background()

	busy, err := svc.HostJoin(ctx, "host-a", HostJoinRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	require.NoError(t, svc.PlayerJoin(ctx, busy, "p1", "Ana"))
	require.NoError(t, svc.PlayerJoin(ctx, busy, "p2", "Bo"))

	fresh, err := svc.HostJoin(ctx, "host-b", HostJoinRequest{QuizID: "quiz-1"})
	require.NoError(t, err)

	f.clock.Advance(time.Millisecond)
	svc.Disconnect(ctx, busy, "p1")
	require.Zero(t, f.registry.PruneIdleLobbies())

	s, err := f.registry.Get(fresh)
	require.NoError(t, err)
	require.Equal(t, domain.StateLobby, s.State())
	require.Zero(t, f.notes.count("host-b", domain.EventGameEnded))

	// only a lobby left empty for the whole idle window is closed
	f.clock.Advance(DefaultLobbyIdleTimeout)
	require.Equal(t, 1, f.registry.PruneIdleLobbies())
	_, err = f.registry.Get(fresh)
	require.ErrorIs(t, err, domain.ErrGameNotFound)
	ended, ok := f.notes.last("host-b", domain.EventGameEnded).(domain.GameEnded)
	require.True(t, ok)
	require.Equal(t, "Game closed due to inactivity", ended.Reason)

	_, err = f.registry.Get(busy)
	require.NoError(t, err)
}

func TestSubmitAnswerUnknownGameIsSilent(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	svc.SubmitAnswer(context.Background(), "000000", "p1", json.RawMessage(`1`), "")
	require.Empty(t, f.notes.names("p1"))
}
