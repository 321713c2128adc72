// Package hierarchy flat-merges the hierarchy files that configure a
// resource and computes the derived values and standard labels the shared
// base configuration would expose.
package hierarchy

import (
	"path/filepath"

	"github.com/opsfactor/tgrender/internal/parser"
	"github.com/opsfactor/tgrender/internal/repo"
	"github.com/opsfactor/tgrender/internal/value"
	"github.com/opsfactor/tgrender/pkg/log"
)

// DefaultRegion is assumed when no hierarchy file sets one.
const DefaultRegion = "europe-west2"

// Result is the outcome of a hierarchy merge.
type Result struct {
	// Merged is the top-level flat merge, later files overriding earlier.
	Merged *value.Map
	// Derived holds the fixed set of computed conveniences.
	Derived *value.Map
	// Labels is the standard_labels dictionary.
	Labels *value.Map
	// Sources maps each merged key to the absolute path of the file that
	// produced it.
	Sources *value.Map
}

// Merge locates and merges the hierarchy files for resourcePath. Files are
// merged flat, in fixed order; the hierarchy itself is never deep-merged.
func Merge(resourcePath, root string) (*Result, error) {
	locator := repo.NewLocator(resourcePath, root)
	files, err := locator.Locate()
	if err != nil {
		return nil, err
	}

	parsed := make(map[string]*value.Map, len(files))
	paths := make(map[string]string, len(files))
	for _, f := range files {
		if f.Path == "" {
			parsed[f.Name] = value.NewMap()
			continue
		}
		paths[f.Name] = f.Path

		var locals *value.Map
		switch f.Name {
		case repo.ProjectFile:
			locals, err = evaluateProject(f.Path, root, parsed[repo.EnvFile], parsed[repo.AccountFile])
		default:
			locals, err = parser.ParseLocals(f.Path, f.Name == repo.CommonFile)
		}
		if err != nil {
			return nil, err
		}
		log.WithField("file", f.Name).WithField("keys", locals.Len()).Debug("parsed hierarchy file")
		parsed[f.Name] = locals
	}

	merged := value.NewMap()
	sources := value.NewMap()
	for _, name := range repo.MergeOrder {
		locals := parsed[name]
		if locals == nil {
			continue
		}
		for pair := locals.Oldest(); pair != nil; pair = pair.Next() {
			merged.Set(pair.Key, pair.Value)
			sources.Set(pair.Key, paths[name])
		}
	}

	derived := deriveValues(merged, resourcePath)
	labels := standardLabels(merged, derived)
	return &Result{Merged: merged, Derived: derived, Labels: labels, Sources: sources}, nil
}

// deriveValues computes the convenience keys the shared base configuration
// derives from the merged hierarchy.
func deriveValues(merged *value.Map, resourcePath string) *value.Map {
	derived := value.NewMap()
	derived.Set("name_prefix", getString(merged, "name_prefix", ""))
	derived.Set("region", getString(merged, "region", DefaultRegion))
	derived.Set("environment", getString(merged, "environment", ""))
	derived.Set("environment_type", getString(merged, "environment_type", ""))
	derived.Set("project_name", getString(merged, "project_name", ""))
	if mv, ok := merged.Get("module_versions"); ok {
		derived.Set("module_versions", mv)
	} else {
		derived.Set("module_versions", value.NewMap())
	}
	derived.Set("resource_name", filepath.Base(resourcePath))
	return derived
}

// standardLabels seeds the canonical labels and extends them with the
// org/env/project label maps, in that order.
func standardLabels(merged, derived *value.Map) *value.Map {
	labels := value.NewMap()
	labels.Set("environment", mustGet(derived, "environment"))
	labels.Set("environment_type", mustGet(derived, "environment_type"))
	labels.Set("managed_by", "terragrunt")
	for _, key := range []string{"org_labels", "env_labels", "project_labels"} {
		extra, ok := merged.Get(key)
		if !ok {
			continue
		}
		if m, isMap := extra.(*value.Map); isMap {
			for pair := m.Oldest(); pair != nil; pair = pair.Next() {
				labels.Set(pair.Key, pair.Value)
			}
		}
	}
	return labels
}

func getString(m *value.Map, key, fallback string) string {
	if v, ok := m.Get(key); ok {
		if s, isStr := v.(string); isStr {
			return s
		}
	}
	return fallback
}

func mustGet(m *value.Map, key string) any {
	v, _ := m.Get(key)
	return v
}
