package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/opsfactor/tgrender/internal/bridge"
	"github.com/opsfactor/tgrender/internal/format"
	"github.com/opsfactor/tgrender/internal/hierarchy"
	"github.com/opsfactor/tgrender/internal/render"
	"github.com/opsfactor/tgrender/internal/repo"
	"github.com/opsfactor/tgrender/internal/value"
)

var (
	outputFormat string
	filterKeys   []string
	showSources  bool
	showLabels   bool
	showMetadata bool
	fullMode     bool
	noColour     bool
	noColor      bool
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&outputFormat, "format", "f", "json", "output format (json, yaml, table)")
	flags.StringArrayVarP(&filterKeys, "key", "k", nil, "filter output to specific key(s), repeatable")
	flags.BoolVar(&showSources, "show-sources", false, "include which file each value originated from")
	flags.BoolVar(&showLabels, "show-labels", false, "show only the computed standard_labels")
	flags.BoolVar(&showMetadata, "show-metadata", false, "show only the metadata dict from inputs (--full mode only)")
	flags.BoolVar(&fullMode, "full", false, "render full config: template defaults deep-merged with resource overrides (requires hcl2json)")
	flags.BoolVar(&noColour, "no-colour", false, "disable coloured output (colours are auto-detected by default)")
	flags.BoolVar(&noColor, "no-color", false, "alias for --no-colour")
	_ = flags.MarkHidden("no-color")
}

func runRender(_ *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}
	resourcePath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if info, statErr := os.Stat(resourcePath); statErr != nil || !info.IsDir() {
		return fmt.Errorf("resource path is not a directory: %s", resourcePath)
	}

	root, err := repo.FindRoot(resourcePath)
	if err != nil {
		return err
	}
	if !repo.InsideLive(resourcePath, root) {
		rel, relErr := filepath.Rel(root, resourcePath)
		if relErr != nil || rel == "." {
			rel = "(repo root)"
		}
		return fmt.Errorf("path must be inside the live/ hierarchy, e.g.:\n"+
			"  live/non-production/development/platform/dp-dev-01/europe-west2/gke/cluster-01\n\n"+
			"Got: %s", rel)
	}

	colour := !noColour && !noColor && term.IsTerminal(os.Stdout.Fd())
	formatter := format.New(colour)

	if fullMode {
		return renderFull(resourcePath, root, formatter)
	}
	return renderHierarchy(resourcePath, root, formatter)
}

func renderFull(resourcePath, root string, formatter *format.Formatter) error {
	b := bridge.New()
	if !b.Available() {
		return bridge.ErrToolUnavailable
	}

	out, err := render.New(resourcePath, root, b).Render()
	if err != nil {
		return err
	}

	output := value.NewMap()
	output.Set("terraform_source", out.TerraformSource)
	output.Set("inputs", out.Inputs)
	output.Set("unresolved", toAnyList(out.Unresolved))

	sources := out.Sources
	if !showSources {
		sources = nil
	}

	switch {
	case showMetadata:
		meta, ok := out.Inputs.Get("metadata")
		if !ok {
			meta = value.NewMap()
		}
		output = value.NewMap()
		output.Set("metadata", meta)
	case len(filterKeys) > 0:
		filtered := value.NewMap()
		for _, k := range filterKeys {
			if v, ok := out.Inputs.Get(k); ok {
				filtered.Set(k, v)
			}
		}
		output = value.NewMap()
		output.Set("terraform_source", out.TerraformSource)
		output.Set("inputs", filtered)
		output.Set("unresolved", toAnyList(out.Unresolved))
		sources = filterMap(sources, filterKeys)
	}

	if sources != nil && sources.Len() > 0 {
		output.Set("sources", sources)
	}
	return emit(formatter, output)
}

func renderHierarchy(resourcePath, root string, formatter *format.Formatter) error {
	hres, err := hierarchy.Merge(resourcePath, root)
	if err != nil {
		return err
	}

	var output *value.Map
	if showLabels {
		output = value.NewMap()
		output.Set("standard_labels", hres.Labels)
	} else {
		output = value.NewMap()
		output.Set("merged", hres.Merged)
		output.Set("derived", hres.Derived)
		output.Set("standard_labels", hres.Labels)
		if showSources {
			output.Set("sources", relativeSources(hres.Sources, root))
		}
	}

	if len(filterKeys) > 0 && !showLabels {
		filtered := value.NewMap()
		for _, k := range filterKeys {
			if v, ok := hres.Derived.Get(k); ok {
				filtered.Set(k, v)
			} else if v, ok := hres.Merged.Get(k); ok {
				filtered.Set(k, v)
			} else if k == "standard_labels" {
				filtered.Set(k, hres.Labels)
			}
		}
		if showSources {
			if sources := filterMap(relativeSources(hres.Sources, root), filterKeys); sources.Len() > 0 {
				filtered.Set("sources", sources)
			}
		}
		output = filtered
	}
	return emit(formatter, output)
}

// emit prints the output map in the selected format. The table format
// receives sources as its own column instead of a nested section.
func emit(formatter *format.Formatter, output *value.Map) error {
	switch outputFormat {
	case "json":
		fmt.Println(formatter.JSON(output))
	case "yaml":
		text, err := formatter.YAML(output)
		if err != nil {
			return err
		}
		fmt.Print(text)
	case "table":
		var sources *value.Map
		if v, ok := output.Get("sources"); ok {
			output.Delete("sources")
			sources, _ = v.(*value.Map)
		}
		fmt.Println(formatter.Table(output, sources))
	default:
		return fmt.Errorf("unknown output format: %s", outputFormat)
	}
	return nil
}

func relativeSources(sources *value.Map, root string) *value.Map {
	out := value.NewMap()
	for pair := sources.Oldest(); pair != nil; pair = pair.Next() {
		path, ok := pair.Value.(string)
		if !ok {
			continue
		}
		if rel, err := filepath.Rel(root, path); err == nil {
			out.Set(pair.Key, rel)
		} else {
			out.Set(pair.Key, path)
		}
	}
	return out
}

func filterMap(m *value.Map, keys []string) *value.Map {
	out := value.NewMap()
	if m == nil {
		return out
	}
	for _, k := range keys {
		if v, ok := m.Get(k); ok {
			out.Set(k, v)
		}
	}
	return out
}

func toAnyList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
