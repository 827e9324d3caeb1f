// Package registry discovers and loads suite definition files.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/neurodesk/testrunner/types"
)

// SuiteFile pairs a suite definition with the file it was loaded from. A nil
// Definition with a non-empty LoadError means the document was malformed; the
// scheduler records such suites as preparation failures instead of crashing
// the run.
type SuiteFile struct {
	Path       string
	Definition *types.SuiteDefinition
	LoadError  string
}

// Name returns the suite name, falling back to the file stem when the
// document is malformed or declares no name.
func (s *SuiteFile) Name() string {
	if s.Definition != nil && s.Definition.Name != "" {
		return s.Definition.Name
	}
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Registry manages the suite definition directory.
type Registry struct {
	testsDir string
}

// NewRegistry creates a registry rooted at the given tests directory.
func NewRegistry(testsDir string) (*Registry, error) {
	if testsDir == "" {
		return nil, fmt.Errorf("tests directory is required")
	}
	abs, err := filepath.Abs(testsDir)
	if err != nil {
		return nil, fmt.Errorf("resolving tests directory %q: %w", testsDir, err)
	}
	return &Registry{testsDir: abs}, nil
}

// TestsDir returns the absolute tests directory.
func (r *Registry) TestsDir() string {
	return r.testsDir
}

// DiscoverFiles returns the suite definition files to run. With no patterns,
// every *.yaml file under the tests directory is selected. Patterns are
// matched as globs relative to the tests directory; a pattern naming an
// existing file directly is also accepted. The returned list is sorted and
// de-duplicated.
func (r *Registry) DiscoverFiles(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	if len(patterns) == 0 {
		matches, err := filepath.Glob(filepath.Join(r.testsDir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("globbing tests directory: %w", err)
		}
		for _, m := range matches {
			add(m)
		}
	} else {
		for _, pattern := range patterns {
			matches, err := filepath.Glob(filepath.Join(r.testsDir, pattern))
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			for _, m := range matches {
				add(m)
			}
			// A plain path outside the tests directory also works.
			if _, err := os.Stat(pattern); err == nil {
				add(pattern)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// LoadSuite reads and parses one suite definition file. Parse failures are
// captured in the returned SuiteFile rather than returned as an error, so one
// malformed document cannot block sibling suites.
func (r *Registry) LoadSuite(path string) *SuiteFile {
	sf := &SuiteFile{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		sf.LoadError = fmt.Sprintf("reading suite file: %v", err)
		return sf
	}

	def, err := types.ParseSuiteDefinition(data)
	if err != nil {
		sf.LoadError = err.Error()
		return sf
	}

	if def.Name == "" {
		def.Name = sf.Name()
	}
	sf.Definition = def

	slog.Debug("loaded suite definition",
		"path", path,
		"suite", def.Name,
		"tests", len(def.Tests))
	return sf
}

// LoadSuites loads every discovered suite file.
func (r *Registry) LoadSuites(paths []string) []*SuiteFile {
	suites := make([]*SuiteFile, 0, len(paths))
	for _, p := range paths {
		suites = append(suites, r.LoadSuite(p))
	}
	return suites
}
