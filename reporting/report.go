// Package reporting renders run results for the console.
package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/neurodesk/testrunner/types"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(run *types.RunResult) error
}

// ConsoleResultFormatter renders the per-suite summary table, failed-test
// details and the final run summary to a writer.
type ConsoleResultFormatter struct {
	out        io.Writer
	failedOnly bool
}

// NewConsoleResultFormatter creates a formatter writing to out (stdout when
// nil). With failedOnly set, suites without failures are omitted from the
// table.
func NewConsoleResultFormatter(out io.Writer, failedOnly bool) *ConsoleResultFormatter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleResultFormatter{out: out, failedOnly: failedOnly}
}

// FormatResults formats and displays the run results.
func (f *ConsoleResultFormatter) FormatResults(run *types.RunResult) error {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Test Results Summary (%s)", formatDuration(run.Duration)))

	t.AppendHeader(table.Row{"Suite", "Passed", "Failed", "Total", "Time", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Total", Align: text.AlignRight},
		{Name: "Time", Align: text.AlignRight},
	})

	// Failing suites first, then by name.
	suites := make([]types.SuiteResult, len(run.Suites))
	copy(suites, run.Suites)
	sort.Slice(suites, func(i, j int) bool {
		if suites[i].Failed != suites[j].Failed {
			return suites[i].Failed > suites[j].Failed
		}
		return suites[i].Name < suites[j].Name
	})

	for _, suite := range suites {
		if f.failedOnly && suite.Ok() {
			continue
		}
		t.AppendRow(table.Row{
			suite.Name,
			suite.Passed,
			suite.Failed,
			suite.Total,
			formatDuration(suite.Duration),
			statusString(suite.Ok()),
		})
	}

	t.Render()

	if run.TotalFailed() > 0 {
		fmt.Fprintln(f.out, "\nFailed Tests:")
		for _, suite := range suites {
			for _, test := range suite.Results {
				if test.Passed {
					continue
				}
				fmt.Fprintf(f.out, "  ✗ %s > %s\n", suite.Name, test.Name)
				fmt.Fprintf(f.out, "    %s\n", test.Message)
			}
		}
	}

	fmt.Fprintf(f.out, "\nSuites: %d passed, %d failed (%d total)\n",
		run.SuitesPassed(), run.SuitesFailed(), len(run.Suites))
	fmt.Fprintf(f.out, "Tests:  %d passed, %d failed (%d total)\n",
		run.TotalPassed(), run.TotalFailed(), run.TotalTests())
	fmt.Fprintf(f.out, "Time:   %s\n", formatDuration(run.Duration))

	return nil
}

// PrintTestLine prints one completed test in streaming console output.
func PrintTestLine(out io.Writer, suiteName string, result types.TestResult) {
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "  %s %s: %s (%.2fs)\n",
		statusString(result.Passed), suiteName, result.Name, result.Duration.Seconds())
	if !result.Passed {
		fmt.Fprintf(out, "    %s\n", result.Message)
	}
}

func statusString(passed bool) string {
	if passed {
		return "✓ pass"
	}
	return "✗ fail"
}

func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		return d.Truncate(time.Second).String()
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
