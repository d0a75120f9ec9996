package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountGames(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.GameCreated()
	m.GameCreated()
	m.GameClosed()
	m.AnswerRecorded(true)
	m.AnswerRecorded(false)
	m.AnswerRecorded(true)
	m.ResultsSaved(nil)
	m.ResultsSaved(errors.New("boom"))

	require.Equal(t, 2.0, testutil.ToFloat64(m.gamesCreated))
	require.Equal(t, 1.0, testutil.ToFloat64(m.activeGames))
	require.Equal(t, 2.0, testutil.ToFloat64(m.answers.WithLabelValues("true")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.resultsSaved.WithLabelValues("error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.GameCreated()
	m.GameClosed()
	m.PinCollision()
	m.AnswerRecorded(true)
	m.ResultsSaved(nil)
}
