package eval

import (
	"fmt"

	"github.com/opsfactor/tgrender/internal/value"
)

// Dependencies indexes dependency blocks by label. Because dependency
// outputs are only known after Terraform plans, references render as stable
// opaque tokens of the shape "#dependency|<config_path>, <key>|".
type Dependencies struct {
	paths map[string]string
	mocks map[string]*value.Map
}

// NewDependencies creates an empty dependency index.
func NewDependencies() *Dependencies {
	return &Dependencies{
		paths: make(map[string]string),
		mocks: make(map[string]*value.Map),
	}
}

// AddBlocks indexes the dependency section of a converted terragrunt file.
// Each entry is either a block map or a list of block maps.
func (d *Dependencies) AddBlocks(depBlocks *value.Map) {
	for pair := depBlocks.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		blocks, ok := pair.Value.([]any)
		if !ok {
			blocks = []any{pair.Value}
		}
		for _, raw := range blocks {
			block, ok := raw.(*value.Map)
			if !ok {
				continue
			}
			if cp, ok := block.Get("config_path"); ok {
				if s, isStr := cp.(string); isStr && s != "" {
					d.paths[name] = s
				}
			}
			switch mock := mustGet(block, "mock_outputs").(type) {
			case *value.Map:
				d.mocks[name] = mock
			case []any:
				if len(mock) > 0 {
					if m, isMap := mock[0].(*value.Map); isMap {
						d.mocks[name] = m
					}
				}
			}
		}
	}
}

// Augment copies entries from other that are not already present. Template
// dependencies extend the resource's set but never override it.
func (d *Dependencies) Augment(other *Dependencies) {
	for name, path := range other.paths {
		if _, exists := d.paths[name]; !exists {
			d.paths[name] = path
		}
	}
	for name, mock := range other.mocks {
		if _, exists := d.mocks[name]; !exists {
			d.mocks[name] = mock
		}
	}
}

// Path returns the config_path for a dependency, falling back to its name.
func (d *Dependencies) Path(name string) string {
	if path, ok := d.paths[name]; ok {
		return path
	}
	return name
}

// Token renders the opaque reference token for an output key (the key may
// carry an index or attribute suffix).
func (d *Dependencies) Token(name, key string) string {
	return fmt.Sprintf("#dependency|%s, %s|", d.Path(name), key)
}

// Mock returns the mock_outputs block for a dependency, if declared.
func (d *Dependencies) Mock(name string) (*value.Map, bool) {
	m, ok := d.mocks[name]
	return m, ok
}

func mustGet(m *value.Map, key string) any {
	v, _ := m.Get(key)
	return v
}
