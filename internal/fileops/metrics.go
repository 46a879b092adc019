package fileops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fileOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pegasus_file_operations_total",
	Help: "File operations applied to project trees by kind and result",
}, []string{"kind", "result"})
