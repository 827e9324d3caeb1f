package runner

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProgressIndicator receives live execution events for progress reporting.
// The registry of running tests it maintains is advisory only: it is never
// consulted for scheduling or aggregation correctness.
type ProgressIndicator interface {
	StartSuite(suiteName string, totalTests int)
	StartTest(key string)
	CompleteTest(key string, passed bool)
	CompleteSuite(suiteName string)
	Stop()
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartSuite(suiteName string, totalTests int) {}
func (n *noOpProgressIndicator) StartTest(key string)                        {}
func (n *noOpProgressIndicator) CompleteTest(key string, passed bool)        {}
func (n *noOpProgressIndicator) CompleteSuite(suiteName string)              {}
func (n *noOpProgressIndicator) Stop()                                       {}

// consoleProgressIndicator logs periodic progress updates including the
// longest-running in-flight tests.
type consoleProgressIndicator struct {
	logger *slog.Logger
	ticker *time.Ticker
	stopCh chan struct{}
	mu     sync.RWMutex

	currentSuite   string
	suiteStartTime time.Time
	completedTests int
	passedTests    int
	failedTests    int
	totalTests     int

	// test key -> start time
	runningTests map[string]time.Time
}

// NewConsoleProgressIndicator creates a progress indicator that logs updates
// at the given interval.
func NewConsoleProgressIndicator(logger *slog.Logger, updateInterval time.Duration) ProgressIndicator {
	if updateInterval == 0 {
		updateInterval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	indicator := &consoleProgressIndicator{
		logger:       logger,
		ticker:       time.NewTicker(updateInterval),
		stopCh:       make(chan struct{}),
		runningTests: make(map[string]time.Time),
	}

	go indicator.progressReporter()

	return indicator
}

func (c *consoleProgressIndicator) StartSuite(suiteName string, totalTests int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentSuite = suiteName
	c.suiteStartTime = time.Now()
	c.totalTests += totalTests

	c.logger.Info("starting suite", "suite", suiteName, "suiteTests", totalTests)
}

func (c *consoleProgressIndicator) StartTest(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runningTests[key] = time.Now()
	c.logger.Debug("test started", "test", key, "running", len(c.runningTests))
}

func (c *consoleProgressIndicator) CompleteTest(key string, passed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.runningTests, key)
	c.completedTests++
	if passed {
		c.passedTests++
	} else {
		c.failedTests++
	}

	c.logger.Debug("test completed",
		"test", key,
		"passed", passed,
		"completed", c.completedTests,
		"total", c.totalTests,
		"running", len(c.runningTests))
}

func (c *consoleProgressIndicator) CompleteSuite(suiteName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := time.Since(c.suiteStartTime).Truncate(time.Second)
	c.logger.Info("completed suite", "suite", suiteName, "duration", duration)
	c.currentSuite = ""
}

// progressReporter runs in a goroutine and periodically reports progress
func (c *consoleProgressIndicator) progressReporter() {
	for {
		select {
		case <-c.ticker.C:
			c.reportProgress()
		case <-c.stopCh:
			return
		}
	}
}

func (c *consoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var percentComplete float64
	if c.totalTests > 0 {
		percentComplete = float64(c.completedTests) * 100.0 / float64(c.totalTests)
	}

	c.logger.Info("progress update",
		"suite", c.currentSuite,
		"completed", c.completedTests,
		"total", c.totalTests,
		"passed", c.passedTests,
		"failed", c.failedTests,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"numRunning", len(c.runningTests),
		"longestRunning", formatRunningTests(c.runningTests, 3))
}

// Stop stops the progress indicator
func (c *consoleProgressIndicator) Stop() {
	if c.ticker != nil {
		c.ticker.Stop()
	}
	close(c.stopCh)
}

// formatRunningTests formats the in-flight tests into a display string,
// longest-running first, limited to maxShow entries.
func formatRunningTests(runningTests map[string]time.Time, maxShow int) string {
	if len(runningTests) == 0 {
		return ""
	}

	type runningTest struct {
		name     string
		duration time.Duration
	}

	var running []runningTest
	now := time.Now()
	for testName, startTime := range runningTests {
		running = append(running, runningTest{
			name:     testName,
			duration: now.Sub(startTime),
		})
	}

	sort.Slice(running, func(i, j int) bool {
		return running[i].duration > running[j].duration
	})

	var runningStrs []string
	for i, test := range running {
		if i >= maxShow {
			break
		}
		duration := test.duration.Truncate(time.Second)
		runningStrs = append(runningStrs, fmt.Sprintf("%s (%v)", test.name, duration))
	}

	if len(running) > maxShow {
		runningStrs = append(runningStrs, fmt.Sprintf("+%d more", len(running)-maxShow))
	}

	return strings.Join(runningStrs, ", ")
}
