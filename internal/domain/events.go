package domain

import "encoding/json"

// Outbound event names, as they appear on the wire.
const (
	EventGameCreated      = "game-created"
	EventPlayerJoined     = "player-joined"
	EventPlayerListUpdate = "player-list-update"
	EventGameStarting     = "game-starting"
	EventQuestionStart    = "question-start"
	EventAnswerSubmitted  = "answer-submitted"
	EventAnswerProgress   = "answer-progress"
	EventQuestionTimeout  = "question-timeout"
	EventAnswerStatistics = "answer-statistics"
	EventPlayerResult     = "player-result"
	EventQuestionEnd      = "question-end"
	EventGameEnd          = "game-end"
	EventGameEnded        = "game-ended"
)

// Event is a message pushed to a single connection.
type Event interface {
	Name() string
}

type GameCreated struct {
	Pin   string `json:"pin"`
	Title string `json:"title"`
}

func (GameCreated) Name() string { return EventGameCreated }

type PlayerJoined struct {
	Pin        string `json:"pin"`
	PlayerName string `json:"name"`
}

func (PlayerJoined) Name() string { return EventPlayerJoined }

type PlayerListUpdate struct {
	Players []PlayerSummary `json:"players"`
}

func (PlayerListUpdate) Name() string { return EventPlayerListUpdate }

type GameStarting struct{}

func (GameStarting) Name() string { return EventGameStarting }

// QuestionStart never carries the answer key.
type QuestionStart struct {
	QuestionNumber int          `json:"questionNumber"`
	TotalQuestions int          `json:"totalQuestions"`
	Question       string       `json:"question"`
	Options        []string     `json:"options,omitempty"`
	Type           QuestionType `json:"type"`
	Image          string       `json:"image,omitempty"`
	TimeLimit      int          `json:"timeLimit"`
}

func (QuestionStart) Name() string { return EventQuestionStart }

type AnswerSubmitted struct {
	Answer json.RawMessage `json:"answer"`
}

func (AnswerSubmitted) Name() string { return EventAnswerSubmitted }

// AnswerProgress tells the host how many players have answered so far.
type AnswerProgress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

func (AnswerProgress) Name() string { return EventAnswerProgress }

type QuestionTimeout struct {
	CorrectAnswer any          `json:"correctAnswer"`
	CorrectOption string       `json:"correctOption"`
	QuestionType  QuestionType `json:"questionType"`
}

func (QuestionTimeout) Name() string { return EventQuestionTimeout }

// AnswerStatistics tallies the answers to one question. Sent to the host only.
type AnswerStatistics struct {
	TotalPlayers    int            `json:"totalPlayers"`
	AnsweredPlayers int            `json:"answeredPlayers"`
	AnswerCounts    map[string]int `json:"answerCounts"`
}

func (AnswerStatistics) Name() string { return EventAnswerStatistics }

type PlayerResult struct {
	IsCorrect  bool `json:"isCorrect"`
	Points     int  `json:"points"`
	TotalScore int  `json:"totalScore"`
}

func (PlayerResult) Name() string { return EventPlayerResult }

type QuestionEnd struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

func (QuestionEnd) Name() string { return EventQuestionEnd }

type GameEnd struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

func (GameEnd) Name() string { return EventGameEnd }

type GameEnded struct {
	Reason string `json:"reason"`
}

func (GameEnded) Name() string { return EventGameEnded }
