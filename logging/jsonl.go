// Package logging writes the durable result outputs of a run: the streaming
// JSONL record file, the pipe-delimited text log and the aggregate summary
// JSON document.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/neurodesk/testrunner/types"
)

// Record is the JSON shape of one completed test in the streaming output.
type Record struct {
	Suite     string  `json:"suite"`
	Container string  `json:"container"`
	Test      string  `json:"test"`
	Passed    bool    `json:"passed"`
	StartTime string  `json:"start_time"`
	Duration  float64 `json:"duration"`
	Message   string  `json:"message"`
	ExitCode  int     `json:"exit_code"`
	Stdout    string  `json:"stdout"`
	Stderr    string  `json:"stderr"`
}

// NewRecord converts a test result into its streaming record form.
func NewRecord(suiteName, container string, result types.TestResult) Record {
	return Record{
		Suite:     suiteName,
		Container: container,
		Test:      result.Name,
		Passed:    result.Passed,
		StartTime: result.StartTime.Format(time.RFC3339Nano),
		Duration:  result.Duration.Seconds(),
		Message:   result.Message,
		ExitCode:  result.ExitCode,
		Stdout:    result.Stdout,
		Stderr:    result.Stderr,
	}
}

// JSONLSink appends one JSON record per completed test to a file, flushing
// after every record so results survive a crashed or interrupted run. Writes
// are serialized under a mutex; concurrent completions never interleave
// partial records.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLSink creates (truncating) the streaming output file.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating JSONL output %s: %w", path, err)
	}
	return &JSONLSink{file: f}, nil
}

// Emit writes one record. Implements the runner's result sink contract.
func (s *JSONLSink) Emit(suiteName, container string, result types.TestResult) error {
	data, err := json.Marshal(NewRecord(suiteName, container, result))
	if err != nil {
		return fmt.Errorf("marshaling result record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing result record: %w", err)
	}
	return s.file.Sync()
}

// Close closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Path returns the output file path.
func (s *JSONLSink) Path() string {
	return s.file.Name()
}
