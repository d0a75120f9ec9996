// Package metrics exposes game counters for Prometheus. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quizmaster"

type Metrics struct {
	gamesCreated  prometheus.Counter
	gamesClosed   prometheus.Counter
	activeGames   prometheus.Gauge
	pinCollisions prometheus.Counter
	answers       *prometheus.CounterVec
	resultsSaved  *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gamesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Games created by hosts.",
		}),
		gamesClosed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_closed_total",
			Help:      "Games that finished, were terminated or removed.",
		}),
		activeGames: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games_active",
			Help:      "Games currently held by the registry.",
		}),
		pinCollisions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pin_collisions_total",
			Help:      "Generated pins that were already taken.",
		}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Accepted answer submissions.",
		}, []string{"correct"}),
		resultsSaved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_saved_total",
			Help:      "Results handoffs to the results store.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) GameCreated() {
	if m == nil {
		return
	}
	m.gamesCreated.Inc()
	m.activeGames.Inc()
}

func (m *Metrics) GameClosed() {
	if m == nil {
		return
	}
	m.gamesClosed.Inc()
	m.activeGames.Dec()
}

func (m *Metrics) PinCollision() {
	if m == nil {
		return
	}
	m.pinCollisions.Inc()
}

func (m *Metrics) AnswerRecorded(correct bool) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) ResultsSaved(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.resultsSaved.WithLabelValues(outcome).Inc()
}
