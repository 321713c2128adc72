package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/opsfactor/tgrender/internal/bridge"
	"github.com/opsfactor/tgrender/internal/eval"
	"github.com/opsfactor/tgrender/internal/hierarchy"
	"github.com/opsfactor/tgrender/internal/value"
	"github.com/opsfactor/tgrender/pkg/log"
)

// ErrMissingResourceFile is returned in full mode when the resource
// directory has no terragrunt.hcl.
var ErrMissingResourceFile = errors.New("no terragrunt.hcl found")

// Output is the final render result.
type Output struct {
	// TerraformSource is the resolved terraform source URL, template first.
	TerraformSource string
	// Inputs is the deep merge of template defaults and resource overrides.
	Inputs *value.Map
	// Unresolved lists every expression that could not be fully evaluated,
	// sorted and deduplicated.
	Unresolved []string
	// Sources maps each top-level input key to the repo-relative file that
	// produced it; the resource wins over the template.
	Sources *value.Map
}

// FileParser converts an HCL file into its raw JSON-shaped tree. The
// external bridge implements it; tests inject fakes.
type FileParser interface {
	Parse(path string) (*value.Map, error)
}

// Renderer runs the end-to-end pipeline for one resource.
type Renderer struct {
	// ResourcePath is the absolute resource directory.
	ResourcePath string
	// Root is the absolute repository root.
	Root string
	// Bridge converts HCL files the static parser cannot handle.
	Bridge FileParser
}

// New creates a renderer for the given resource.
func New(resourcePath, root string, parser FileParser) *Renderer {
	return &Renderer{ResourcePath: resourcePath, Root: root, Bridge: parser}
}

// Render merges the hierarchy, resolves the resource and its template, and
// deep-merges their inputs.
func (r *Renderer) Render() (*Output, error) {
	hres, err := hierarchy.Merge(r.ResourcePath, r.Root)
	if err != nil {
		return nil, err
	}

	resourceHCL := filepath.Join(r.ResourcePath, "terragrunt.hcl")
	if !isFile(resourceHCL) {
		return nil, fmt.Errorf("%w at %s", ErrMissingResourceFile, r.ResourcePath)
	}
	parsed, err := r.Bridge.Parse(resourceHCL)
	if err != nil {
		return nil, err
	}
	blocks := bridge.ExtractBlocks(parsed)

	includes := newIncludeResolver(blocks.Include, r.ResourcePath, r.Root)
	templatePath, hasTemplate := includes.template()

	deps := eval.NewDependencies()
	deps.AddBlocks(blocks.Dependency)

	parseFile := func(path string) (*value.Map, error) {
		return r.Bridge.Parse(path)
	}

	ctx := r.newContext(hres, deps)
	ctx.ParseFile = parseFile

	// Exposed includes first, so include.<name>.locals.* references in the
	// resource file resolve. Includes that fail to parse are skipped.
	for _, inc := range includes.exposed() {
		incParsed, err := r.Bridge.Parse(inc.Path)
		if err != nil {
			log.WithField("include", inc.Name).WithError(err).Warn("skipping exposed include")
			continue
		}
		incBlocks := bridge.ExtractBlocks(incParsed)
		incCtx := r.newContext(hres, deps)
		incCtx.ParseFile = parseFile
		incCtx.AdoptCache(ctx)
		ctx.ExtraIncludes[inc.Name] = incCtx.ResolveLocals(incBlocks.Locals, nil)
	}

	resourceLocals := ctx.ResolveLocals(blocks.Locals, nil)
	ctx.SetLocals(resourceLocals)

	templateInputs := value.NewMap()
	terraformSource := ""
	if hasTemplate {
		tParsed, err := r.Bridge.Parse(templatePath)
		if err != nil {
			return nil, err
		}
		tBlocks := bridge.ExtractBlocks(tParsed)

		// Template dependencies augment the resource's set, never override.
		tDeps := eval.NewDependencies()
		tDeps.AddBlocks(tBlocks.Dependency)
		deps.Augment(tDeps)

		tCtx := r.newContext(hres, deps)
		tCtx.ParseFile = parseFile
		tCtx.AdoptCache(ctx)

		// Templates normally read the hierarchy via
		// read_terragrunt_config(common.hcl); seed those values instead.
		seed := value.NewMap()
		commonVars := value.NewMap()
		commonVars.Set("locals", hres.Merged)
		seed.Set("common_vars", commonVars)
		seed.Set("module_versions", derivedValue(hres, "module_versions"))

		templateLocals := tCtx.ResolveLocals(tBlocks.Locals, seed)
		tCtx.SetLocals(templateLocals)
		templateInputs = tCtx.ResolveInputs(tBlocks.Inputs)
		terraformSource = extractSource(tBlocks.Terraform, templateLocals, hres.Derived)

		for _, u := range tCtx.Unresolved() {
			ctx.MarkUnresolved(u)
		}
	}

	if terraformSource == "" {
		terraformSource = extractSource(blocks.Terraform, resourceLocals, hres.Derived)
	}

	resourceInputs := ctx.ResolveInputs(blocks.Inputs)
	finalInputs := DeepMerge(templateInputs, resourceInputs)

	sources := value.NewMap()
	resRel := relTo(r.Root, resourceHCL)
	tmplRel := ""
	if hasTemplate {
		tmplRel = relTo(r.Root, templatePath)
	}
	for pair := finalInputs.Oldest(); pair != nil; pair = pair.Next() {
		if _, fromResource := resourceInputs.Get(pair.Key); fromResource {
			sources.Set(pair.Key, resRel)
		} else if _, fromTemplate := templateInputs.Get(pair.Key); fromTemplate {
			sources.Set(pair.Key, tmplRel)
		}
	}

	unresolved := ctx.Unresolved()
	sort.Strings(unresolved)

	return &Output{
		TerraformSource: terraformSource,
		Inputs:          finalInputs,
		Unresolved:      unresolved,
		Sources:         sources,
	}, nil
}

// newContext builds an evaluation context exposing the hierarchy as the
// namespace the template would see under include.base.locals.*.
func (r *Renderer) newContext(hres *hierarchy.Result, deps *eval.Dependencies) *eval.Context {
	ctx := eval.NewContext(r.ResourcePath, r.Root)
	base := value.NewMap()
	base.Set("merged", hres.Merged)
	base.Set("region", derivedValue(hres, "region"))
	base.Set("environment", derivedValue(hres, "environment"))
	base.Set("environment_type", derivedValue(hres, "environment_type"))
	base.Set("name_prefix", derivedValue(hres, "name_prefix"))
	base.Set("project_name", derivedValue(hres, "project_name"))
	base.Set("module_versions", derivedValue(hres, "module_versions"))
	base.Set("resource_name", derivedValue(hres, "resource_name"))
	base.Set("standard_labels", hres.Labels)
	ctx.BaseLocals = base
	ctx.Deps = deps
	return ctx
}

var reInterp = regexp.MustCompile(`\$\{([^}]+)\}`)

// extractSource pulls the source URL from terraform blocks, resolving
// ${local.*} against the given locals and
// ${include.base.locals.module_versions.*} against the derived values.
func extractSource(tfBlocks []any, locals, derived *value.Map) string {
	for _, raw := range tfBlocks {
		block, ok := raw.(*value.Map)
		if !ok {
			continue
		}
		sourceRaw, _ := block.Get("source")
		source, ok := sourceRaw.(string)
		if !ok || source == "" {
			continue
		}

		source = reInterp.ReplaceAllStringFunc(source, func(match string) string {
			ref := strings.TrimSpace(match[2 : len(match)-1])
			if !strings.HasPrefix(ref, "local.") {
				return match
			}
			if v, found := value.Lookup(locals, ref[len("local."):]); found {
				return value.Stringify(v)
			}
			return match
		})

		source = reInterp.ReplaceAllStringFunc(source, func(match string) string {
			ref := strings.TrimSpace(match[2 : len(match)-1])
			const prefix = "include.base.locals."
			if !strings.HasPrefix(ref, prefix) {
				return match
			}
			scope := value.NewMap()
			scope.Set("module_versions", mustGet(derived, "module_versions"))
			if v, found := value.Lookup(scope, ref[len(prefix):]); found {
				return value.Stringify(v)
			}
			return match
		})
		return source
	}
	return ""
}

func derivedValue(hres *hierarchy.Result, key string) any {
	v, _ := hres.Derived.Get(key)
	return v
}

func mustGet(m *value.Map, key string) any {
	v, _ := m.Get(key)
	return v
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
