// Package metrics exposes prometheus metrics for test runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/neurodesk/testrunner/types"
)

const (
	MetricsNamespace = "testrunner"
)

var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of runner errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Total number of executed tests",
	}, []string{
		"run_id",
		"suite",
	})

	testsPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_passed",
		Help:      "Number of passed tests",
	}, []string{
		"run_id",
		"suite",
	})

	testsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_failed",
		Help:      "Number of failed tests",
	}, []string{
		"run_id",
		"suite",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Wall-clock duration of individual tests",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{
		"suite",
	})

	runResult = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_result",
		Help:      "Result of the last run (1 = pass, 0 = fail)",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Total duration of the last run",
	}, []string{
		"run_id",
	})
)

// RecordTest records one completed test.
func RecordTest(runID, suite string, result types.TestResult) {
	testsTotal.WithLabelValues(runID, suite).Inc()
	if result.Passed {
		testsPassed.WithLabelValues(runID, suite).Inc()
	} else {
		testsFailed.WithLabelValues(runID, suite).Inc()
	}
	testDuration.WithLabelValues(suite).Observe(result.Duration.Seconds())
}

// RecordRun records run-level outcome.
func RecordRun(runID string, failed int, duration time.Duration) {
	passed := 0.0
	if failed == 0 {
		passed = 1.0
	}
	runResult.WithLabelValues(runID).Set(passed)
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}

// RecordError increments the error counter for a named error condition.
func RecordError(name string) {
	errorsTotal.WithLabelValues(name).Inc()
}
