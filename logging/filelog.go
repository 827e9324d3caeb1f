package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/neurodesk/testrunner/types"
)

// WriteTextLog writes the line-oriented run log: one pipe-delimited line per
// test, suites in name order, tests in completion order within each suite.
// Captured tool output can carry ANSI escapes; those are stripped so the log
// stays grep-friendly.
func WriteTextLog(path string, run *types.RunResult, generated time.Time) error {
	var b strings.Builder

	b.WriteString("# Container Test Results\n")
	fmt.Fprintf(&b, "# Generated: %s\n", generated.Format(time.RFC3339))
	fmt.Fprintf(&b, "# Run ID: %s\n", run.RunID)
	fmt.Fprintf(&b, "# Total Duration: %.2fs\n", run.Duration.Seconds())
	b.WriteString("#\n")
	b.WriteString("# Format: STATE | START_TIME | DURATION | SUITE | TEST_NAME | MESSAGE\n")
	b.WriteString("#\n\n")

	suites := make([]types.SuiteResult, len(run.Suites))
	copy(suites, run.Suites)
	sort.Slice(suites, func(i, j int) bool { return suites[i].Name < suites[j].Name })

	for _, suite := range suites {
		for _, test := range suite.Results {
			state := "FAIL"
			if test.Passed {
				state = "PASS"
			}
			message := stripansi.Strip(strings.ReplaceAll(test.Message, "\n", " "))
			fmt.Fprintf(&b, "%s | %s | %.3fs | %s | %s | %s\n",
				state,
				test.StartTime.Format(time.RFC3339),
				test.Duration.Seconds(),
				suite.Name,
				test.Name,
				message)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing text log %s: %w", path, err)
	}
	return nil
}
