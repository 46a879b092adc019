package builder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "pegasus_build_duration_seconds",
	Help:    "Wall time of build invocations by outcome",
	Buckets: []float64{1, 5, 10, 20, 30, 60, 90, 120, 180},
}, []string{"outcome"})
