package flags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestUniqueFlagNames ensures no flag name or alias is registered twice.
func TestUniqueFlagNames(t *testing.T) {
	seen := map[string]bool{}
	for _, flag := range Flags {
		for _, name := range flag.Names() {
			require.False(t, seen[name], "flag name %q declared twice", name)
			seen[name] = true
		}
	}
}

// TestEnvVarPrefix ensures every flag with an env var uses the shared prefix.
func TestEnvVarPrefix(t *testing.T) {
	for _, flag := range Flags {
		env, ok := flag.(cli.DocGenerationFlag)
		require.True(t, ok)
		for _, name := range env.GetEnvVars() {
			assert.True(t, strings.HasPrefix(name, EnvVarPrefix+"_"),
				"env var %q missing %s_ prefix", name, EnvVarPrefix)
		}
	}
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "tests", TestsDir.Value)
	assert.Equal(t, "containers", ContainersDir.Value)
	assert.Equal(t, 1, Jobs.Value)
	assert.Equal(t, "apptainer", ApptainerBinary.Value)
	assert.Equal(t, "test_results.log", Log.Value)
	assert.Equal(t, "test_results.jsonl", JSONL.Value)
	assert.True(t, ShowProgress.Value)
}
