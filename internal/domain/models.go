package domain

import (
	"encoding/json"
	"time"
)

// QuestionType selects how a question's answer key is interpreted.
type QuestionType string

const (
	MultipleChoice  QuestionType = "multiple-choice"
	MultipleCorrect QuestionType = "multiple-correct"
	TrueFalse       QuestionType = "true-false"
	Numeric         QuestionType = "numeric"
)

// Difficulty scales base points and the time bonus.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// DefaultTimeLimit applies to questions that leave timeLimit unset.
const DefaultTimeLimit = 20

// MaxNameLength bounds a player's display name, in characters.
const MaxNameLength = 20

// GameState is the lifecycle position of a session.
type GameState string

const (
	StateLobby     GameState = "lobby"
	StateStarting  GameState = "starting"
	StateQuestion  GameState = "question"
	StateRevealing GameState = "revealing"
	StateFinished  GameState = "finished"
)

// Question is immutable for the lifetime of a session. CorrectAnswer holds an
// index, a boolean (or "true"/"false") or a number depending on Type.
type Question struct {
	Text           string          `json:"question"`
	Type           QuestionType    `json:"type"`
	Difficulty     Difficulty      `json:"difficulty,omitempty"`
	TimeLimit      int             `json:"timeLimit,omitempty"` // seconds, 0 means DefaultTimeLimit
	Image          string          `json:"image,omitempty"`
	Options        []string        `json:"options,omitempty"`
	CorrectAnswer  json.RawMessage `json:"correctAnswer,omitempty"`
	CorrectAnswers []int           `json:"correctAnswers,omitempty"`
	Tolerance      *float64        `json:"tolerance,omitempty"`
}

// Duration returns the question's deadline.
func (q Question) Duration() time.Duration {
	limit := q.TimeLimit
	if limit <= 0 {
		limit = DefaultTimeLimit
	}
	return time.Duration(limit) * time.Second
}

// Quiz is a titled, ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// AnswerRecord is a scored submission. Once written to a player's slot it is
// never replaced.
type AnswerRecord struct {
	Value     json.RawMessage `json:"value"`
	IsCorrect bool            `json:"isCorrect"`
	Points    int             `json:"points"`
	ElapsedMs int64           `json:"elapsedMs"`
}

// Player is a participant in a session. Answers has one slot per question.
type Player struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Score   int             `json:"score"`
	Answers []*AnswerRecord `json:"answers"`
}

// PlayerSummary is the public view of a player in lobby updates.
type PlayerSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LeaderboardEntry is a snapshot-friendly view of a player.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// PlayerOutcome is one player's line in the persisted results.
type PlayerOutcome struct {
	Name    string          `json:"name"`
	Score   int             `json:"score"`
	Answers []*AnswerRecord `json:"answers"`
}

// GameResults is handed to the results store when a game ends.
type GameResults struct {
	QuizTitle string          `json:"quizTitle"`
	GamePin   string          `json:"gamePin"`
	Results   []PlayerOutcome `json:"results"`
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime"`
}
