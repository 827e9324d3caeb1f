// Package containers locates Apptainer/Singularity image files for suite
// container references.
package containers

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resolve finds the container image for a reference string inside dir.
// It tries an exact filename match first, then falls back to a glob on the
// reference's name prefix (the part before the first underscore, with any
// ".simg" suffix stripped) and returns the newest matching version. Image
// files embed their version and build date in the filename, so lexicographic
// order is release order.
//
// Returns "" when no image matches.
func Resolve(reference, dir string) string {
	if reference == "" {
		return ""
	}
	if _, err := os.Stat(dir); err != nil {
		return ""
	}

	exact := filepath.Join(dir, reference)
	if _, err := os.Stat(exact); err == nil {
		return exact
	}

	base := strings.TrimSuffix(reference, ".simg")
	if i := strings.Index(base, "_"); i >= 0 {
		base = base[:i]
	}

	matches, err := filepath.Glob(filepath.Join(dir, base+"_*.simg"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}
