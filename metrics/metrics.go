// Package metrics holds the Prometheus collectors of the bot. They are
// registered with the default registry and exposed by the web server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Questions presented to users
	QuestionsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizbot_questions_served_total",
			Help: "Total number of questions presented",
		},
	)

	// Scored answers
	Answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_answers_total",
			Help: "Total number of scored answers",
		},
		[]string{"result"}, // result: correct/wrong
	)

	// Answers that were not scored
	Rejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_answer_rejections_total",
			Help: "Total number of rejected answer events",
		},
		[]string{"reason"}, // reason: no_active_question/malformed
	)

	CyclesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizbot_cycles_completed_total",
			Help: "Total number of finished quiz cycles",
		},
	)

	Resets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizbot_resets_total",
			Help: "Total number of session resets",
		},
	)

	// Delayed auto-advance continuations
	AutoAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_auto_advances_total",
			Help: "Total number of auto-advance continuations by outcome",
		},
		[]string{"outcome"}, // outcome: fired/stale
	)

	Sessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizbot_sessions_current",
			Help: "Current number of in-memory sessions",
		},
	)

	UpdateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizbot_update_duration_seconds",
			Help:    "Time spent handling one Telegram update",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // kind: message/callback
	)
)
