package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the progression counters exported next to the HTTP metrics.
type Metrics struct {
	XPAwarded       *prometheus.CounterVec
	Completions     *prometheus.CounterVec
	LevelUps        prometheus.Counter
	BadgesAwarded   *prometheus.CounterVec
	QuestsCompleted prometheus.Counter
	Replays         prometheus.Counter
}

// NewMetrics builds the counters and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		XPAwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heroquest_xp_awarded_total",
				Help: "Total XP granted, bonus included",
			},
			[]string{"source"},
		),
		Completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heroquest_completions_total",
				Help: "Number of recorded completions",
			},
			[]string{"source"},
		),
		LevelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heroquest_level_ups_total",
			Help: "Number of completions that raised a hero's level",
		}),
		BadgesAwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heroquest_badges_awarded_total",
				Help: "Number of badges unlocked",
			},
			[]string{"rarity"},
		),
		QuestsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heroquest_quests_completed_total",
			Help: "Number of quests that reached their quorum",
		}),
		Replays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heroquest_completion_replays_total",
			Help: "Completions answered from a stored idempotent result",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.XPAwarded, m.Completions, m.LevelUps, m.BadgesAwarded, m.QuestsCompleted, m.Replays)
	}
	return m
}
