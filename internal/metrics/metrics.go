// Package metrics exposes Prometheus counters for the controller core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector aggregates the process-wide metrics. All methods are safe on a
// nil receiver so components can treat metrics as optional.
type Collector struct {
	controlActions *prometheus.CounterVec
	analyzerRuns   *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
}

// NewCollector registers the metrics on the default registry.
func NewCollector() *Collector {
	return &Collector{
		controlActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "headend_control_actions_total",
			Help: "Supervisor control actions by kind, action and outcome",
		}, []string{"kind", "action", "outcome"}),

		analyzerRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "headend_analyzer_runs_total",
			Help: "Stream analyzer invocations by mode and outcome",
		}, []string{"mode", "outcome"}),

		cacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "headend_analysis_cache_lookups_total",
			Help: "Analysis cache lookups by result",
		}, []string{"result"}),
	}
}

func (c *Collector) ObserveControl(kind, action string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.controlActions.WithLabelValues(kind, action, outcome).Inc()
}

func (c *Collector) ObserveAnalyzer(mode string, available bool) {
	if c == nil {
		return
	}
	outcome := "ok"
	if !available {
		outcome = "unavailable"
	}
	c.analyzerRuns.WithLabelValues(mode, outcome).Inc()
}

func (c *Collector) ObserveCacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}
