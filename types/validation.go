package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ValidationKind identifies a post-execution check declared on a test.
type ValidationKind string

const (
	// ValidationOutputExists checks that a path exists on the filesystem.
	ValidationOutputExists ValidationKind = "output_exists"
	// ValidationSameDimensions checks that two NIfTI images share a shape.
	ValidationSameDimensions ValidationKind = "same_dimensions"
)

// Validation is one parsed validation directive. In YAML each directive is a
// single-key mapping whose key names the check; parsing resolves the key to a
// ValidationKind here so the executor can switch on a closed set instead of
// branching on raw strings.
type Validation struct {
	Kind ValidationKind

	// Path is set for output_exists.
	Path string

	// Paths holds the two files compared by same_dimensions.
	Paths [2]string
}

// UnmarshalYAML implements yaml.Unmarshaler for the single-key mapping form.
func (v *Validation) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("validation at line %d must be a single-key mapping", node.Line)
	}

	var key string
	if err := node.Content[0].Decode(&key); err != nil {
		return fmt.Errorf("decoding validation key: %w", err)
	}
	value := node.Content[1]

	switch ValidationKind(key) {
	case ValidationOutputExists:
		var path string
		if err := value.Decode(&path); err != nil {
			return fmt.Errorf("output_exists at line %d expects a path: %w", node.Line, err)
		}
		v.Kind = ValidationOutputExists
		v.Path = path
		return nil

	case ValidationSameDimensions:
		var paths []string
		if err := value.Decode(&paths); err != nil {
			return fmt.Errorf("same_dimensions at line %d expects a list of two paths: %w", node.Line, err)
		}
		if len(paths) != 2 {
			return fmt.Errorf("same_dimensions at line %d expects exactly two paths, got %d", node.Line, len(paths))
		}
		v.Kind = ValidationSameDimensions
		v.Paths = [2]string{paths[0], paths[1]}
		return nil

	default:
		return fmt.Errorf("unknown validation %q at line %d", key, node.Line)
	}
}
