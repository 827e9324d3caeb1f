package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultTimeoutSeconds is applied when neither the suite nor the test
// declares a timeout.
const DefaultTimeoutSeconds = 120

// OutputDirVariable is the reserved test-data variable whose target directory
// is wiped and recreated before a suite runs. It is suite-scoped and is never
// bind-mounted from the host side.
const OutputDirVariable = "output_dir"

// SuiteDefinition is one YAML test suite document, bound to one container
// image. It is read-only after load.
type SuiteDefinition struct {
	Name           string            `yaml:"name"`
	Container      string            `yaml:"container"`
	DefaultTimeout int               `yaml:"default_timeout"`
	TestData       map[string]string `yaml:"test_data"`
	EnvSetup       string            `yaml:"env_setup"`
	Setup          ScriptBlock       `yaml:"setup"`
	Cleanup        ScriptBlock       `yaml:"cleanup"`
	Tests          []TestSpec        `yaml:"tests"`
}

// ScriptBlock wraps an optional shell snippet run on the host around a suite.
type ScriptBlock struct {
	Script string `yaml:"script"`
}

// TestSpec is a single declared test within a suite. Names are not required
// to be unique; duplicates are tracked independently.
type TestSpec struct {
	Name                   string       `yaml:"name"`
	Command                string       `yaml:"command"`
	EnvSetup               string       `yaml:"env_setup"`
	Timeout                int          `yaml:"timeout"`
	ExpectedExitCode       *int         `yaml:"expected_exit_code"`
	ExpectedExitCodeNot    *int         `yaml:"expected_exit_code_not"`
	ExpectedOutputContains StringList   `yaml:"expected_output_contains"`
	Validate               []Validation `yaml:"validate"`
}

// EffectiveTimeoutSeconds returns the test's timeout, falling back to the
// suite default and then to DefaultTimeoutSeconds.
func (t *TestSpec) EffectiveTimeoutSeconds(suiteDefault int) int {
	if t.Timeout > 0 {
		return t.Timeout
	}
	if suiteDefault > 0 {
		return suiteDefault
	}
	return DefaultTimeoutSeconds
}

// DisplayName returns the test name, or a placeholder for unnamed tests.
func (t *TestSpec) DisplayName() string {
	if t.Name == "" {
		return "Unnamed test"
	}
	return t.Name
}

// StringList accepts either a single YAML scalar or a sequence of scalars.
// The suite format allows `expected_output_contains: "READY"` as shorthand
// for a one-element list.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = StringList(many)
		return nil
	default:
		return fmt.Errorf("expected string or list of strings at line %d", node.Line)
	}
}

// ParseSuiteDefinition parses a YAML suite document.
func ParseSuiteDefinition(data []byte) (*SuiteDefinition, error) {
	var def SuiteDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing suite definition: %w", err)
	}
	return &def, nil
}
