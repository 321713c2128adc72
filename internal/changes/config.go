// Package changes maps changed files onto the resource types defined in
// the workflow configuration and orders them for execution.
package changes

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

// Resource describes one resource type from resource-definitions.yml.
type Resource struct {
	// Dependencies are resource type names that must run first.
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty" jsonschema:"description=Resource types that must run before this one"`
	// PathPattern matches files belonging to this resource type.
	PathPattern Patterns `yaml:"path_pattern,omitempty" json:"path_pattern,omitempty" jsonschema:"description=Glob pattern(s) matching files of this resource type"`
	// ExcludePattern removes matches from PathPattern.
	ExcludePattern Patterns `yaml:"exclude_pattern,omitempty" json:"exclude_pattern,omitempty" jsonschema:"description=Glob pattern(s) excluded from path_pattern matches"`
	// TemplatePath is the shared template directory; a change under it
	// re-triggers every instance of the resource type.
	TemplatePath string `yaml:"template_path,omitempty" json:"template_path,omitempty" jsonschema:"description=Template directory whose changes affect all instances"`
	// Emoji decorates workflow job names.
	Emoji string `yaml:"emoji,omitempty" json:"emoji,omitempty" jsonschema:"description=Emoji shown in workflow job names"`
	// Name is the human-readable resource name.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"description=Human-readable resource name"`
	// Description documents the resource type.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"description=Resource description"`
	// ID is the resource type key, filled when emitting output.
	ID string `yaml:"-" json:"id,omitempty"`
}

// Definitions is the root of resource-definitions.yml.
type Definitions struct {
	Resources map[string]*Resource `yaml:"resources" json:"resources" jsonschema:"description=Resource type definitions keyed by name"`
}

// Patterns accepts either a single glob string or a list of globs.
type Patterns []string

// UnmarshalYAML implements scalar-or-sequence decoding.
func (p *Patterns) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*p = Patterns{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = Patterns(list)
		return nil
	}
	return fmt.Errorf("path pattern must be a string or a list of strings")
}

// LoadDefinitions reads and parses a resource-definitions file.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse definitions %s: %w", path, err)
	}
	if defs.Resources == nil {
		defs.Resources = make(map[string]*Resource)
	}
	return &defs, nil
}
