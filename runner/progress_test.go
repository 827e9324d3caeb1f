package runner

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpProgressIndicator(t *testing.T) {
	p := NewNoOpProgressIndicator()
	p.StartSuite("suite", 2)
	p.StartTest("suite: one")
	p.CompleteTest("suite: one", true)
	p.CompleteSuite("suite")
	p.Stop()
}

func TestConsoleProgressIndicatorLifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := NewConsoleProgressIndicator(logger, time.Hour)
	p.StartSuite("fsl tests", 2)
	p.StartTest("fsl tests: bet")
	p.CompleteTest("fsl tests: bet", true)
	p.StartTest("fsl tests: flirt")
	p.CompleteTest("fsl tests: flirt", false)
	p.CompleteSuite("fsl tests")
	p.Stop()

	out := buf.String()
	assert.Contains(t, out, "starting suite")
	assert.Contains(t, out, "completed suite")
}

func TestConsoleProgressIndicatorReport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := NewConsoleProgressIndicator(logger, time.Hour).(*consoleProgressIndicator)
	defer p.Stop()

	p.StartSuite("fsl tests", 4)
	p.StartTest("fsl tests: bet")
	p.CompleteTest("fsl tests: bet", true)
	p.StartTest("fsl tests: flirt")
	p.reportProgress()

	out := buf.String()
	assert.Contains(t, out, "progress update")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "fsl tests: flirt")
}

func TestFormatRunningTests(t *testing.T) {
	assert.Equal(t, "", formatRunningTests(nil, 3))

	now := time.Now()
	running := map[string]time.Time{
		"suite: young":  now.Add(-1 * time.Second),
		"suite: old":    now.Add(-60 * time.Second),
		"suite: middle": now.Add(-30 * time.Second),
	}

	out := formatRunningTests(running, 2)
	parts := strings.Split(out, ", ")
	assert.Len(t, parts, 3) // two entries plus the "+1 more" marker
	assert.Contains(t, parts[0], "suite: old")
	assert.Contains(t, parts[1], "suite: middle")
	assert.Equal(t, "+1 more", parts[2])
}
