package runner

import (
	"log/slog"

	"github.com/neurodesk/testrunner/types"
)

// ResultSink receives every completed test result exactly once, as it
// completes. Sequential mode calls Emit directly after each test; parallel
// mode calls it from the collection goroutine as workers finish, so
// implementations must serialize their own writes.
type ResultSink interface {
	Emit(suiteName, container string, result types.TestResult) error
}

// SinkFunc adapts a function to the ResultSink interface.
type SinkFunc func(suiteName, container string, result types.TestResult) error

// Emit implements ResultSink.
func (f SinkFunc) Emit(suiteName, container string, result types.TestResult) error {
	return f(suiteName, container, result)
}

// MultiSink fans one result out to several sinks. A failing sink is logged
// and skipped; result delivery to the remaining sinks is never interrupted.
type MultiSink struct {
	sinks []ResultSink
}

// NewMultiSink creates a sink that forwards to each given sink in order.
// Nil entries are ignored.
func NewMultiSink(sinks ...ResultSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Emit implements ResultSink.
func (m *MultiSink) Emit(suiteName, container string, result types.TestResult) error {
	for _, s := range m.sinks {
		if err := s.Emit(suiteName, container, result); err != nil {
			slog.Warn("result sink failed", "suite", suiteName, "test", result.Name, "err", err)
		}
	}
	return nil
}
