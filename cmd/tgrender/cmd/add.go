package cmd

import (
	"path/filepath"
	"strings"

	"charm.land/huh/v2"
	"github.com/spf13/cobra"

	"github.com/opsfactor/tgrender/internal/scaffold"
	"github.com/opsfactor/tgrender/pkg/log"
)

var (
	addName         string
	addDisplayName  string
	addDescription  string
	addEmoji        string
	addDependencies string
	addPathPattern  string
	addTemplatePath string
	addDefinitions  string
	addWorkflow     string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Wire a new resource type into the workflow configuration",
	Long: `Add a resource type: append its block to the resource definitions
file and its job to the engine workflow, including the merge-gate
dependency.

Required details not passed as flags are asked for interactively.`,
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	flags := addCmd.Flags()
	flags.StringVar(&addName, "name", "", "resource name (kebab-case)")
	flags.StringVar(&addDisplayName, "display-name", "", "human readable name (defaults to title case of name)")
	flags.StringVar(&addDescription, "description", "", "resource description")
	flags.StringVar(&addEmoji, "emoji", "", "emoji for the resource")
	flags.StringVar(&addDependencies, "dependencies", "", "comma-separated list of dependencies")
	flags.StringVar(&addPathPattern, "path-pattern", "", "path pattern (default: live/**/<name>/**)")
	flags.StringVar(&addTemplatePath, "template-path", "", "template path (default: _common/templates/<name>)")
	flags.StringVar(&addDefinitions, "definitions",
		filepath.Join(".github", "workflow-config", "resource-definitions.yml"),
		"path to the resource definitions file")
	flags.StringVar(&addWorkflow, "workflow",
		filepath.Join(".github", "workflows", "terragrunt-main-engine.yml"),
		"path to the engine workflow file")
}

func runAdd(_ *cobra.Command, _ []string) error {
	if addName == "" || addDescription == "" {
		if err := promptAdd(); err != nil {
			return err
		}
	}

	opts := &scaffold.Options{
		Name:         addName,
		DisplayName:  addDisplayName,
		Description:  addDescription,
		Emoji:        addEmoji,
		PathPattern:  addPathPattern,
		TemplatePath: addTemplatePath,
	}
	for dep := range strings.SplitSeq(addDependencies, ",") {
		if dep = strings.TrimSpace(dep); dep != "" {
			opts.Dependencies = append(opts.Dependencies, dep)
		}
	}
	opts.ApplyDefaults()

	if err := scaffold.UpdateDefinitions(addDefinitions, opts); err != nil {
		return err
	}
	if err := scaffold.UpdateWorkflow(addWorkflow, opts); err != nil {
		return err
	}
	log.WithField("resource", opts.Name).Info("resource support added")
	return nil
}

func promptAdd() error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Resource name").
				Description("kebab-case, e.g. cloud-dns").
				Value(&addName),
			huh.NewInput().
				Title("Description").
				Value(&addDescription),
			huh.NewInput().
				Title("Emoji").
				Description("unique per resource, shown in job names").
				Value(&addEmoji),
			huh.NewInput().
				Title("Dependencies").
				Description("comma-separated resource names, empty for none").
				Value(&addDependencies),
		),
	)
	return form.Run()
}
