package nestedset

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nestedset_mutations_total",
	Help: "The total number of structural tree mutations by result",
}, []string{"op", "result"})

var mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "nestedset_mutation_duration_seconds",
	Help:    "A histogram of tree mutation latencies, retries included",
	Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
}, []string{"op"})

var conflictRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nestedset_conflict_retries_total",
	Help: "The number of mutations re-run after a concurrent modification",
}, []string{"op"})

var integrityViolations = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "nestedset_integrity_violations",
	Help: "Violations found by the most recent integrity check",
})

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCycle):
		return "cycle"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidPosition):
		return "invalid_position"
	default:
		return "error"
	}
}
