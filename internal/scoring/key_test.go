package scoring_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/scoring"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func tolerance(v float64) *float64 { return &v }

func TestEvaluate(t *testing.T) {
	mc := domain.Question{Text: "2+2?", Type: domain.MultipleChoice, Options: []string{"3", "4", "5"}, CorrectAnswer: raw(`1`)}
	multi := domain.Question{Text: "Primes?", Type: domain.MultipleCorrect, Options: []string{"2", "4", "5"}, CorrectAnswers: []int{0, 2}}
	tf := domain.Question{Text: "Sky is blue?", Type: domain.TrueFalse, CorrectAnswer: raw(`"True"`)}
	num := domain.Question{Text: "About ten", Type: domain.Numeric, CorrectAnswer: raw(`10`), Tolerance: tolerance(0.5)}
	numDefault := domain.Question{Text: "Exactly ten", Type: domain.Numeric, CorrectAnswer: raw(`"10"`)}

	tests := map[string]struct {
		question domain.Question
		answer   string
		want     bool
	}{
		"choice correct index":           {mc, `1`, true},
		"choice index as string":         {mc, `"1"`, true},
		"choice wrong index":             {mc, `2`, false},
		"choice fractional index":        {mc, `1.5`, false},
		"choice null":                    {mc, `null`, false},
		"choice negative index":          {mc, `-1`, false},
		"choice huge index":              {mc, `1e300`, false},
		"multi huge index":               {multi, `[0,2,1e300]`, false},
		"multi order independent":        {multi, `[2,0]`, true},
		"multi subset":                   {multi, `[0]`, false},
		"multi superset":                 {multi, `[0,1,2]`, false},
		"multi not a list":               {multi, `0`, false},
		"true-false case insensitive":    {tf, `"tRuE"`, true},
		"true-false json bool":           {tf, `true`, true},
		"true-false wrong":               {tf, `"false"`, false},
		"true-false null":                {tf, `null`, false},
		"numeric within tolerance":       {num, `10.3`, true},
		"numeric on the boundary":        {num, `10.5`, true},
		"numeric outside tolerance":      {num, `9.4`, false},
		"numeric as string":              {num, `"9.8"`, true},
		"numeric default tolerance":      {numDefault, `10.1`, true},
		"numeric past default tolerance": {numDefault, `10.2`, false},
		"numeric garbage":                {num, `"ten"`, false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, scoring.Evaluate(tc.question, raw(tc.answer)))
		})
	}
}

func TestKeysRejectMalformedQuizzes(t *testing.T) {
	tests := map[string]domain.Quiz{
		"no questions": {Title: "empty"},
		"unknown type": {Questions: []domain.Question{{Text: "?", Type: "essay"}}},
		"choice index out of range": {Questions: []domain.Question{
			{Text: "?", Type: domain.MultipleChoice, Options: []string{"a", "b"}, CorrectAnswer: raw(`2`)},
		}},
		"choice with one option": {Questions: []domain.Question{
			{Text: "?", Type: domain.MultipleChoice, Options: []string{"a"}, CorrectAnswer: raw(`0`)},
		}},
		"multi without answers": {Questions: []domain.Question{
			{Text: "?", Type: domain.MultipleCorrect, Options: []string{"a", "b"}},
		}},
		"true-false not boolean": {Questions: []domain.Question{
			{Text: "?", Type: domain.TrueFalse, CorrectAnswer: raw(`"maybe"`)},
		}},
		"numeric missing answer": {Questions: []domain.Question{
			{Text: "?", Type: domain.Numeric},
		}},
		"empty text": {Questions: []domain.Question{
			{Type: domain.TrueFalse, CorrectAnswer: raw(`true`)},
		}},
		"unknown difficulty": {Questions: []domain.Question{
			{Text: "?", Type: domain.TrueFalse, CorrectAnswer: raw(`true`), Difficulty: "brutal"},
		}},
	}

	for name, quiz := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := scoring.Keys(quiz)
			require.Error(t, err)
			require.True(t, errors.Is(err, domain.ErrInvalidQuiz), "got %v", err)
		})
	}
}

func TestKeyReveal(t *testing.T) {
	k, err := scoring.NewKey(domain.Question{Text: "Primes?", Type: domain.MultipleCorrect, Options: []string{"2", "4", "5"}, CorrectAnswers: []int{2, 0}})
	require.NoError(t, err)
	answer, option := k.Reveal()
	require.Equal(t, []int{0, 2}, answer)
	require.Equal(t, "2, 5", option)

	k, err = scoring.NewKey(domain.Question{Text: "Sky is blue?", Type: domain.TrueFalse, CorrectAnswer: raw(`false`)})
	require.NoError(t, err)
	answer, option = k.Reveal()
	require.Equal(t, "false", answer)
	require.Equal(t, "False", option)
}
