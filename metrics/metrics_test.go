package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/neurodesk/testrunner/types"
)

func TestRecordTest(t *testing.T) {
	RecordTest("run-a", "fsl tests", types.TestResult{Passed: true, Duration: time.Second})
	RecordTest("run-a", "fsl tests", types.TestResult{Passed: false, Duration: time.Second})

	assert.Equal(t, 2.0, testutil.ToFloat64(testsTotal.With(prometheus.Labels{
		"run_id": "run-a", "suite": "fsl tests",
	})))
	assert.Equal(t, 1.0, testutil.ToFloat64(testsPassed.With(prometheus.Labels{
		"run_id": "run-a", "suite": "fsl tests",
	})))
	assert.Equal(t, 1.0, testutil.ToFloat64(testsFailed.With(prometheus.Labels{
		"run_id": "run-a", "suite": "fsl tests",
	})))
}

func TestRecordRun(t *testing.T) {
	RecordRun("run-pass", 0, 90*time.Second)
	RecordRun("run-fail", 3, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(runResult.With(prometheus.Labels{"run_id": "run-pass"})))
	assert.Equal(t, 0.0, testutil.ToFloat64(runResult.With(prometheus.Labels{"run_id": "run-fail"})))
	assert.Equal(t, 90.0, testutil.ToFloat64(runDuration.With(prometheus.Labels{"run_id": "run-pass"})))
}

func TestRecordError(t *testing.T) {
	RecordError("write_log")
	RecordError("write_log")

	assert.Equal(t, 2.0, testutil.ToFloat64(errorsTotal.With(prometheus.Labels{"error": "write_log"})))
}
