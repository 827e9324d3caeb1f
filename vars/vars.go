// Package vars implements placeholder substitution for suite commands,
// scripts and validation paths.
package vars

import (
	"sort"
	"strings"
)

// Substitute replaces ${name} and $name placeholders in text with the mapped
// values. Unmatched placeholders are left verbatim rather than raising an
// error; suites legitimately pass `$HOME` and similar through to the
// container shell.
//
// Variables are applied longest-name-first so that `$input_dir` is never
// clobbered by a shorter `$input` substitution, and ties break
// lexicographically so the result is deterministic for a fixed mapping.
func Substitute(text string, variables map[string]string) string {
	if text == "" || len(variables) == 0 {
		return text
	}

	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	result := text
	for _, name := range names {
		value := variables[name]
		result = strings.ReplaceAll(result, "${"+name+"}", value)
		result = strings.ReplaceAll(result, "$"+name, value)
	}
	return result
}
