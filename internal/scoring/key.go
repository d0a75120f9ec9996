// Package scoring evaluates submitted answers and aggregates per-question
// statistics and leaderboards. Every question type is decoded once into a Key,
// and each concern dispatches through it.
package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"quizmaster-service/internal/domain"
)

// DefaultTolerance applies to numeric questions without an explicit tolerance.
const DefaultTolerance = 0.1

// Key is the decoded answer key of a single question.
type Key interface {
	Type() domain.QuestionType
	// Correct reports whether a raw submitted answer matches the key.
	// Answers that cannot be decoded are incorrect.
	Correct(answer json.RawMessage) bool
	// Buckets returns the statistics buckets an answer counts towards.
	Buckets(answer json.RawMessage) []string
	// InitialBuckets lists buckets reported even when nobody picked them.
	InitialBuckets() []string
	// Reveal returns the correct answer and its human-readable option.
	Reveal() (correctAnswer any, correctOption string)
}

// NewKey validates a question and decodes its answer key.
func NewKey(q domain.Question) (Key, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("%w: question text is empty", domain.ErrInvalidQuiz)
	}
	if q.TimeLimit < 0 {
		return nil, fmt.Errorf("%w: negative time limit", domain.ErrInvalidQuiz)
	}
	switch q.Difficulty {
	case "", domain.Easy, domain.Medium, domain.Hard:
	default:
		return nil, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidQuiz, q.Difficulty)
	}

	switch q.Type {
	case domain.MultipleChoice:
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: multiple-choice needs at least two options", domain.ErrInvalidQuiz)
		}
		idx, ok := parseIndex(q.CorrectAnswer)
		if !ok || idx < 0 || idx >= len(q.Options) {
			return nil, fmt.Errorf("%w: correct answer is not an option index", domain.ErrInvalidQuiz)
		}
		return choiceKey{options: q.Options, correct: idx}, nil

	case domain.MultipleCorrect:
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: multiple-correct needs at least two options", domain.ErrInvalidQuiz)
		}
		if len(q.CorrectAnswers) == 0 {
			return nil, fmt.Errorf("%w: multiple-correct needs correct answers", domain.ErrInvalidQuiz)
		}
		for _, idx := range q.CorrectAnswers {
			if idx < 0 || idx >= len(q.Options) {
				return nil, fmt.Errorf("%w: correct answer %d is not an option index", domain.ErrInvalidQuiz, idx)
			}
		}
		return multiKey{options: q.Options, correct: sortedCopy(q.CorrectAnswers)}, nil

	case domain.TrueFalse:
		v, ok := parseBool(q.CorrectAnswer)
		if !ok || (v != "true" && v != "false") {
			return nil, fmt.Errorf("%w: true-false answer must be true or false", domain.ErrInvalidQuiz)
		}
		return trueFalseKey{correct: v}, nil

	case domain.Numeric:
		v, ok := parseNumber(q.CorrectAnswer)
		if !ok {
			return nil, fmt.Errorf("%w: numeric answer is not a number", domain.ErrInvalidQuiz)
		}
		tolerance := DefaultTolerance
		if q.Tolerance != nil {
			if *q.Tolerance < 0 {
				return nil, fmt.Errorf("%w: negative tolerance", domain.ErrInvalidQuiz)
			}
			tolerance = *q.Tolerance
		}
		return numericKey{correct: v, tolerance: tolerance}, nil
	}
	return nil, fmt.Errorf("%w: unknown question type %q", domain.ErrInvalidQuiz, q.Type)
}

// Keys validates a whole quiz and returns one key per question.
func Keys(quiz domain.Quiz) ([]Key, error) {
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", domain.ErrInvalidQuiz)
	}
	keys := make([]Key, len(quiz.Questions))
	for i, q := range quiz.Questions {
		k, err := NewKey(q)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		keys[i] = k
	}
	return keys, nil
}

// Evaluate reports whether answer is correct for q. Malformed questions never match.
func Evaluate(q domain.Question, answer json.RawMessage) bool {
	k, err := NewKey(q)
	if err != nil {
		return false
	}
	return k.Correct(answer)
}

type choiceKey struct {
	options []string
	correct int
}

func (choiceKey) Type() domain.QuestionType { return domain.MultipleChoice }

func (k choiceKey) Correct(answer json.RawMessage) bool {
	idx, ok := parseIndex(answer)
	return ok && idx == k.correct
}

func (k choiceKey) Buckets(answer json.RawMessage) []string {
	if idx, ok := parseIndex(answer); ok {
		return []string{strconv.Itoa(idx)}
	}
	return []string{literal(answer)}
}

func (k choiceKey) InitialBuckets() []string { return indexBuckets(len(k.options)) }

func (k choiceKey) Reveal() (any, string) { return k.correct, k.options[k.correct] }

type multiKey struct {
	options []string
	correct []int
}

func (multiKey) Type() domain.QuestionType { return domain.MultipleCorrect }

func (k multiKey) Correct(answer json.RawMessage) bool {
	got, ok := parseIndexSet(answer)
	if !ok || len(got) != len(k.correct) {
		return false
	}
	got = sortedCopy(got)
	for i := range got {
		if got[i] != k.correct[i] {
			return false
		}
	}
	return true
}

func (k multiKey) Buckets(answer json.RawMessage) []string {
	got, ok := parseIndexSet(answer)
	if !ok {
		return []string{literal(answer)}
	}
	got = normalizeSet(got)
	out := make([]string, len(got))
	for i, idx := range got {
		out[i] = strconv.Itoa(idx)
	}
	return out
}

func (k multiKey) InitialBuckets() []string { return indexBuckets(len(k.options)) }

func (k multiKey) Reveal() (any, string) {
	texts := make([]string, len(k.correct))
	for i, idx := range k.correct {
		texts[i] = k.options[idx]
	}
	return k.correct, strings.Join(texts, ", ")
}

type trueFalseKey struct {
	correct string
}

func (trueFalseKey) Type() domain.QuestionType { return domain.TrueFalse }

func (k trueFalseKey) Correct(answer json.RawMessage) bool {
	v, ok := parseBool(answer)
	return ok && v == k.correct
}

func (k trueFalseKey) Buckets(answer json.RawMessage) []string {
	if v, ok := parseBool(answer); ok && (v == "true" || v == "false") {
		return []string{v}
	}
	return []string{literal(answer)}
}

func (trueFalseKey) InitialBuckets() []string { return []string{"true", "false"} }

func (k trueFalseKey) Reveal() (any, string) {
	if k.correct == "true" {
		return k.correct, "True"
	}
	return k.correct, "False"
}

type numericKey struct {
	correct   float64
	tolerance float64
}

func (numericKey) Type() domain.QuestionType { return domain.Numeric }

func (k numericKey) Correct(answer json.RawMessage) bool {
	v, ok := parseNumber(answer)
	return ok && math.Abs(v-k.correct) <= k.tolerance
}

func (numericKey) Buckets(answer json.RawMessage) []string { return []string{literal(answer)} }

func (numericKey) InitialBuckets() []string { return nil }

func (k numericKey) Reveal() (any, string) {
	return k.correct, strconv.FormatFloat(k.correct, 'f', -1, 64)
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseIndex accepts integral values in [0, math.MaxInt32].
func parseIndex(raw json.RawMessage) (int, bool) {
	v, ok := parseNumber(raw)
	if !ok || v != math.Trunc(v) || v < 0 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

func parseIndexSet(raw json.RawMessage) ([]int, bool) {
	if isNull(raw) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		idx, ok := parseIndex(item)
		if !ok {
			return nil, false
		}
		out = append(out, idx)
	}
	return out, true
}

// parseNumber accepts JSON numbers and numeric strings.
func parseNumber(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseBool lowercases strings and renders JSON booleans as "true"/"false".
func parseBool(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(s)), true
}

// literal renders an answer for bucketing: strings unquoted, anything else as sent.
func literal(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func sortedCopy(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}

// normalizeSet sorts and drops duplicates.
func normalizeSet(in []int) []int {
	out := sortedCopy(in)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

func indexBuckets(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}
