package runner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodesk/testrunner/types"
)

func TestMultiSinkFansOut(t *testing.T) {
	var first, second []string
	sink := NewMultiSink(
		SinkFunc(func(suiteName, container string, result types.TestResult) error {
			first = append(first, result.Name)
			return nil
		}),
		nil, // ignored
		SinkFunc(func(suiteName, container string, result types.TestResult) error {
			second = append(second, result.Name)
			return nil
		}),
	)

	require.NoError(t, sink.Emit("suite", "img", types.TestResult{Name: "one"}))
	assert.Equal(t, []string{"one"}, first)
	assert.Equal(t, []string{"one"}, second)
}

func TestMultiSinkSurvivesFailingSink(t *testing.T) {
	var delivered []string
	sink := NewMultiSink(
		SinkFunc(func(suiteName, container string, result types.TestResult) error {
			return errors.New("disk full")
		}),
		SinkFunc(func(suiteName, container string, result types.TestResult) error {
			delivered = append(delivered, result.Name)
			return nil
		}),
	)

	require.NoError(t, sink.Emit("suite", "img", types.TestResult{Name: "one"}))
	assert.Equal(t, []string{"one"}, delivered)
}
