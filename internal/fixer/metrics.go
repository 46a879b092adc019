package fixer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fixSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pegasus_fix_sessions_total",
		Help: "Fix sessions by terminal state",
	}, []string{"outcome"})

	fixIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pegasus_fix_iterations",
		Help:    "Build calls per finished fix session",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
	})
)
