package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsStarted counts runs accepted by the control surface
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "automl",
		Name:      "runs_started_total",
		Help:      "Number of runs started",
	})

	// ModelsAdmitted counts genuinely new artifacts admitted to a leaderboard
	ModelsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "automl",
		Name:      "models_admitted_total",
		Help:      "Number of distinct models admitted to leaderboards",
	})

	// WorkUnitsCredited counts abstract work units credited to run progress
	WorkUnitsCredited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "automl",
		Name:      "work_units_credited_total",
		Help:      "Work units credited across all runs",
	})
)
