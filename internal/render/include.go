// Package render orchestrates the full config render: include and
// dependency resolution, expression evaluation, and the deep merge of
// template defaults with resource overrides.
package render

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/opsfactor/tgrender/internal/repo"
	"github.com/opsfactor/tgrender/internal/value"
)

var (
	reWrapped         = regexp.MustCompile(`(?s)^\$\{(.+)\}$`)
	reRepoRootWrapped = regexp.MustCompile(`\$\{get_repo_root\(\)\}`)
	reRepoRoot        = regexp.MustCompile(`get_repo_root\(\)`)
	reFindInParent    = regexp.MustCompile(`find_in_parent_folders\("([^"]+)"\)`)
)

// includeResolver identifies the template include and the exposed includes
// of a resource file.
type includeResolver struct {
	blocks       *value.Map
	resourcePath string
	repoRoot     string
}

// exposedInclude is one include with expose = true that is not the
// template and not one of the reserved names.
type exposedInclude struct {
	Name string
	Path string
}

func newIncludeResolver(blocks *value.Map, resourcePath, repoRoot string) *includeResolver {
	return &includeResolver{blocks: blocks, resourcePath: resourcePath, repoRoot: repoRoot}
}

// template returns the resolved path of the first include carrying
// merge_strategy = "deep".
func (r *includeResolver) template() (string, bool) {
	for pair := r.blocks.Oldest(); pair != nil; pair = pair.Next() {
		for _, block := range blockList(pair.Value) {
			if strategy, _ := block.Get("merge_strategy"); strategy == "deep" {
				raw, _ := block.Get("path")
				if rawPath, ok := raw.(string); ok {
					return r.resolvePath(rawPath)
				}
				return "", false
			}
		}
	}
	return "", false
}

// exposed returns the non-template includes with expose = true, skipping
// the root and base includes which are handled separately.
func (r *includeResolver) exposed() []exposedInclude {
	var result []exposedInclude
	for pair := r.blocks.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		if name == "root" || name == "base" {
			continue
		}
		for _, block := range blockList(pair.Value) {
			if strategy, _ := block.Get("merge_strategy"); strategy == "deep" {
				continue // the template
			}
			if expose, _ := block.Get("expose"); expose != true {
				continue
			}
			raw, _ := block.Get("path")
			rawPath, ok := raw.(string)
			if !ok {
				continue
			}
			if resolved, found := r.resolvePath(rawPath); found {
				result = append(result, exposedInclude{Name: name, Path: resolved})
			}
		}
	}
	return result
}

// resolvePath evaluates a path expression: the ${...} wrapper is stripped,
// get_repo_root() and find_in_parent_folders("name") are substituted, and
// relative results are joined against the resource directory.
func (r *includeResolver) resolvePath(raw string) (string, bool) {
	resolved := raw
	if m := reWrapped.FindStringSubmatch(resolved); m != nil {
		resolved = m[1]
	}
	resolved = reRepoRootWrapped.ReplaceAllString(resolved, r.repoRoot)
	resolved = reRepoRoot.ReplaceAllString(resolved, r.repoRoot)
	locator := repo.NewLocator(r.resourcePath, r.repoRoot)
	resolved = reFindInParent.ReplaceAllStringFunc(resolved, func(call string) string {
		name := reFindInParent.FindStringSubmatch(call)[1]
		if path, found := locator.FindInParentFolders(name); found {
			return path
		}
		return name
	})
	if strings.Contains(resolved, "${") {
		return "", false
	}
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(r.resourcePath, resolved)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil || !isFile(abs) {
		return "", false
	}
	return abs, true
}

// blockList normalises a block entry that may be a single map or a list of
// maps.
func blockList(v any) []*value.Map {
	var out []*value.Map
	switch t := v.(type) {
	case *value.Map:
		out = append(out, t)
	case []any:
		for _, item := range t {
			if m, ok := item.(*value.Map); ok {
				out = append(out, m)
			}
		}
	}
	return out
}
