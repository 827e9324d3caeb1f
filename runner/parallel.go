package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/neurodesk/testrunner/types"
)

// workResult pairs a completed unit with its outcome.
type workResult struct {
	unit   types.PreparedTest
	result types.TestResult
}

// executeUnits fans the prepared units out across a fixed-size worker pool
// and streams every completion through the collect callback. Each unit
// produces exactly one result regardless of interleaving: workers never
// retry, and the executor converts every failure mode into a result.
//
// Collection happens on this goroutine, so collect needs no locking of its
// own; sinks shared with other writers still serialize internally.
func (r *Runner) executeUnits(ctx context.Context, units []types.PreparedTest, collect func(workResult)) {
	if len(units) == 0 {
		return
	}

	concurrency := r.concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(units) {
		concurrency = len(units)
	}

	// Conservative buffering; test processes dominate memory, not channels.
	bufferSize := min(concurrency*2, 100)
	workChan := make(chan types.PreparedTest, bufferSize)
	resultChan := make(chan workResult, bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go r.worker(ctx, &wg, workChan, resultChan)
	}

	go func() {
		defer close(workChan)
		for _, unit := range units {
			select {
			case workChan <- unit:
			case <-ctx.Done():
				slog.Debug("context cancelled while dispatching test units")
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for wr := range resultChan {
		collect(wr)
	}
}

// worker executes units from workChan until it closes.
func (r *Runner) worker(ctx context.Context, wg *sync.WaitGroup, workChan <-chan types.PreparedTest, resultChan chan<- workResult) {
	defer wg.Done()

	for {
		select {
		case unit, ok := <-workChan:
			if !ok {
				return
			}

			key := unit.Key()
			r.progress.StartTest(key)
			result := r.executor.Execute(ctx, unit)
			r.progress.CompleteTest(key, result.Passed)

			select {
			case resultChan <- workResult{unit: unit, result: result}:
			case <-ctx.Done():
				slog.Debug("context cancelled while sending result", "test", key)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
