// Package metrics provides Prometheus metrics for the progression engine:
// completions, awarded FP, eligibility denials, and reset scheduler fires.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Completions ────────────────────────────────────────────────────────────

// CompletionsTotal counts recorded action completions by kind.
var CompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ignition",
	Name:      "completions_total",
	Help:      "Total recorded action completions.",
}, []string{"kind"})

// FuelPointsAwarded counts FP credited to players.
var FuelPointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ignition",
	Name:      "fuel_points_awarded_total",
	Help:      "Total fuel points awarded.",
})

// ─── Eligibility ────────────────────────────────────────────────────────────

// EligibilityDenials counts gate denials by machine reason.
var EligibilityDenials = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ignition",
	Name:      "eligibility_denials_total",
	Help:      "Total eligibility denials.",
}, []string{"reason"})

// ─── Reset Scheduler ────────────────────────────────────────────────────────

// ResetsFired counts successful streak-reset fires.
var ResetsFired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ignition",
	Name:      "resets_fired_total",
	Help:      "Total successful streak-reset fires.",
})

// ResetFailures counts failed reset side-effect calls. A failure is not
// retried before the next natural boundary.
var ResetFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ignition",
	Name:      "reset_failures_total",
	Help:      "Total failed streak-reset fires.",
})

// ResetLastFire records the wall-clock time of the last successful fire.
var ResetLastFire = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ignition",
	Name:      "reset_last_fire_timestamp_seconds",
	Help:      "Unix time of the last successful streak reset.",
})
