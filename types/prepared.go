package types

// PreparedTest is a self-contained unit of work: one declared test plus every
// piece of context needed to execute it in isolation. Once a unit is handed
// to a worker it must not share mutable state with its suite, so each unit
// carries a private copy of the resolved variable map.
type PreparedTest struct {
	SuiteName      string
	ContainerName  string

	// SuiteIndex identifies the prepared suite this unit belongs to within
	// one run. Suite names are not guaranteed unique across files, so
	// aggregation groups results by this index rather than by name.
	SuiteIndex int
	ContainerPath  string
	Spec           TestSpec
	Variables      map[string]string
	WorkDir        string
	GlobalEnvSetup string
	DefaultTimeout int
}

// Key returns the "suite: test" identifier used by the live progress registry.
func (p *PreparedTest) Key() string {
	return p.SuiteName + ": " + p.Spec.DisplayName()
}

// CloneVariables returns a private copy of a variable map, so prepared units
// cannot observe mutation of each other's inputs.
func CloneVariables(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
