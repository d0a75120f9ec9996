package domain

import "errors"

var (
	// ErrGameNotFound is returned when no active session holds the pin.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameAlreadyStarted is returned when joining or starting a game past its lobby.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrInvalidName rejects empty or overlong player names.
	ErrInvalidName = errors.New("invalid player name")
	// ErrInvalidQuiz rejects quizzes without questions or with malformed questions.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNotHost is returned when a host-only command arrives from another connection.
	ErrNotHost = errors.New("only the host can do that")
)
