package changes

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opsfactor/tgrender/internal/value"
	"github.com/opsfactor/tgrender/pkg/log"
)

// examplePrefix marks sample resources ignored by change detection.
const examplePrefix = "example-"

// Detector groups changed files by resource type and resolves execution
// order.
type Detector struct {
	// Defs are the loaded resource definitions.
	Defs *Definitions
	// WorkDir is the repository root all paths are relative to.
	WorkDir string
}

// Affected holds the change set for one resource type.
type Affected struct {
	// Paths are the resource instance directories, sorted.
	Paths []string
	// Resource is the definition, with ID filled in.
	Resource *Resource
}

// Result is the outcome of change detection.
type Result struct {
	// Ordered lists affected resource types, dependencies first.
	Ordered []string
	// ByType maps resource type to its change set.
	ByType map[string]*Affected
	// Deleted maps resource type to removed instance directories.
	Deleted map[string][]string
}

// Detect maps changed files onto resource types. A change under a
// template_path re-triggers every instance of that resource type.
func (d *Detector) Detect(changedFiles []string) (*Result, error) {
	pathsByType := make(map[string]map[string]bool)
	deletedByType := make(map[string]map[string]bool)
	expand := make(map[string]bool)

	for _, file := range changedFiles {
		for name, res := range d.Defs.Resources {
			if res.TemplatePath != "" && strings.HasPrefix(file, res.TemplatePath) {
				expand[name] = true
			}
		}

		matched := ""
		for name, res := range d.Defs.Resources {
			if Match(file, res.ExcludePattern) {
				continue
			}
			if Match(file, res.PathPattern) {
				matched = name
				break
			}
		}
		if matched == "" {
			continue
		}

		abs := filepath.Join(d.WorkDir, file)
		if _, err := os.Stat(abs); err == nil {
			if root, ok := d.resourceRoot(abs); ok {
				addPath(pathsByType, matched, root)
			}
			continue
		}

		// Deleted file: a removed terragrunt.hcl means the instance itself
		// is gone; anything else may leave the instance in place.
		if filepath.Base(file) == "terragrunt.hcl" {
			rel := filepath.Dir(file)
			if strings.HasPrefix(filepath.Base(rel), examplePrefix) {
				continue
			}
			if deletedByType[matched] == nil {
				deletedByType[matched] = make(map[string]bool)
			}
			deletedByType[matched][rel] = true
		} else if root, ok := d.resourceRoot(filepath.Dir(abs)); ok {
			addPath(pathsByType, matched, root)
		}
	}

	if err := d.expandTemplates(expand, pathsByType); err != nil {
		return nil, err
	}

	affected := make(map[string]bool, len(pathsByType))
	for name := range pathsByType {
		affected[name] = true
	}

	result := &Result{
		Ordered: orderByDependencies(affected, d.Defs),
		ByType:  make(map[string]*Affected, len(pathsByType)),
		Deleted: make(map[string][]string, len(deletedByType)),
	}
	for name, paths := range pathsByType {
		res := *d.Defs.Resources[name]
		res.ID = name
		result.ByType[name] = &Affected{Paths: sortedKeys(paths), Resource: &res}
	}
	for name, paths := range deletedByType {
		result.Deleted[name] = sortedKeys(paths)
	}
	return result, nil
}

// expandTemplates scans live/ for every instance of the resource types
// whose template changed. Types expand concurrently; the walks are
// independent.
func (d *Detector) expandTemplates(expand map[string]bool, pathsByType map[string]map[string]bool) error {
	if len(expand) == 0 {
		return nil
	}
	var mu sync.Mutex
	var g errgroup.Group
	for name := range expand {
		res := d.Defs.Resources[name]
		g.Go(func() error {
			paths, err := d.instancePaths(res)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, p := range paths {
				addPath(pathsByType, name, p)
			}
			return nil
		})
	}
	return g.Wait()
}

// instancePaths walks live/ for directories holding a terragrunt.hcl that
// matches the resource's patterns.
func (d *Detector) instancePaths(res *Resource) ([]string, error) {
	searchRoot := filepath.Join(d.WorkDir, "live")
	if _, err := os.Stat(searchRoot); err != nil {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(searchRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() && entry.Name() == ".terragrunt-cache" {
			return filepath.SkipDir
		}
		if entry.IsDir() || entry.Name() != "terragrunt.hcl" {
			return nil
		}
		dir := filepath.Dir(path)
		if strings.HasPrefix(filepath.Base(dir), examplePrefix) {
			return nil
		}
		rel, err := filepath.Rel(d.WorkDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if Match(rel, res.ExcludePattern) {
			return nil
		}
		if Match(rel, res.PathPattern) {
			paths = append(paths, filepath.ToSlash(filepath.Dir(rel)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithField("count", len(paths)).Debug("expanded template instances")
	return paths, nil
}

// resourceRoot walks up from path to the directory holding terragrunt.hcl,
// returning it relative to the work dir. Example resources are skipped.
func (d *Detector) resourceRoot(path string) (string, bool) {
	current := path
	if info, err := os.Stat(current); err != nil || !info.IsDir() {
		current = filepath.Dir(current)
	}
	for strings.HasPrefix(current, d.WorkDir) {
		if _, err := os.Stat(filepath.Join(current, "terragrunt.hcl")); err == nil {
			if strings.HasPrefix(filepath.Base(current), examplePrefix) {
				return "", false
			}
			rel, err := filepath.Rel(d.WorkDir, current)
			if err != nil {
				return "", false
			}
			return filepath.ToSlash(rel), true
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", false
}

// Output renders the ordered change map in the shape the engine workflow
// consumes: type → {paths, config}.
func (r *Result) Output() *value.Map {
	out := value.NewMap()
	for _, name := range r.Ordered {
		a := r.ByType[name]
		if a == nil || len(a.Paths) == 0 {
			continue
		}
		entry := value.NewMap()
		paths := make([]any, len(a.Paths))
		for i, p := range a.Paths {
			paths[i] = p
		}
		entry.Set("paths", paths)
		entry.Set("config", resourceMap(a.Resource))
		out.Set(name, entry)
	}
	return out
}

func resourceMap(res *Resource) *value.Map {
	m := value.NewMap()
	if len(res.Dependencies) > 0 {
		deps := make([]any, len(res.Dependencies))
		for i, d := range res.Dependencies {
			deps[i] = d
		}
		m.Set("dependencies", deps)
	}
	if len(res.PathPattern) > 0 {
		m.Set("path_pattern", joinSingle(res.PathPattern))
	}
	if len(res.ExcludePattern) > 0 {
		m.Set("exclude_pattern", joinSingle(res.ExcludePattern))
	}
	if res.TemplatePath != "" {
		m.Set("template_path", res.TemplatePath)
	}
	if res.Emoji != "" {
		m.Set("emoji", res.Emoji)
	}
	if res.Name != "" {
		m.Set("name", res.Name)
	}
	if res.Description != "" {
		m.Set("description", res.Description)
	}
	m.Set("id", res.ID)
	return m
}

// joinSingle keeps single-pattern fields as plain strings, matching the
// YAML they came from.
func joinSingle(p Patterns) any {
	if len(p) == 1 {
		return p[0]
	}
	out := make([]any, len(p))
	for i, s := range p {
		out[i] = s
	}
	return out
}

func addPath(m map[string]map[string]bool, name, path string) {
	if m[name] == nil {
		m[name] = make(map[string]bool)
	}
	m[name][path] = true
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
