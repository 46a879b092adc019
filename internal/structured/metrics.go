package structured

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	parseStrategyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pegasus_parse_strategy_total",
		Help: "Structured output recoveries by winning strategy (none when all failed)",
	}, []string{"strategy"})

	sanitizeFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pegasus_sanitize_fallback_total",
		Help: "Projects replaced by the fallback skeleton",
	})
)
