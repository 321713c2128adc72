package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/opsfactor/tgrender/internal/changes"
	"github.com/opsfactor/tgrender/internal/gitx"
	"github.com/opsfactor/tgrender/internal/value"
	"github.com/opsfactor/tgrender/pkg/log"
)

var (
	changesDefinitions string
	changesBaseRef     string
	changesHeadRef     string
	changesDir         string
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Detect affected resources between two git refs",
	Long: `Map the files changed between two git refs onto the resource types
defined in the workflow configuration, expand template changes to every
instance, and order the result by dependency.

The change map is printed as JSON. When GITHUB_OUTPUT is set, the
changes, emojis, names and has_changes outputs are appended for the
engine workflow to consume.`,
	RunE: runChanges,
}

func init() {
	rootCmd.AddCommand(changesCmd)

	changesCmd.Flags().StringVar(&changesDefinitions, "definitions",
		filepath.Join(".github", "workflow-config", "resource-definitions.yml"),
		"path to the resource definitions file")
	changesCmd.Flags().StringVar(&changesBaseRef, "base-ref", "", "base git ref (required)")
	changesCmd.Flags().StringVar(&changesHeadRef, "head-ref", "HEAD", "head git ref")
	changesCmd.Flags().StringVarP(&changesDir, "dir", "d", ".", "repository working directory")
	_ = changesCmd.MarkFlagRequired("base-ref")
}

func runChanges(_ *cobra.Command, _ []string) error {
	workDir, err := filepath.Abs(changesDir)
	if err != nil {
		return err
	}

	defs, err := changes.LoadDefinitions(filepath.Join(workDir, changesDefinitions))
	if err != nil {
		return err
	}

	repo, err := gitx.Open(workDir)
	if err != nil {
		return err
	}
	files, err := repo.ChangedFiles(changesBaseRef, changesHeadRef)
	if err != nil {
		return err
	}
	log.WithField("files", len(files)).Debug("changed files")

	detector := &changes.Detector{Defs: defs, WorkDir: workDir}
	result, err := detector.Detect(files)
	if err != nil {
		return err
	}

	logSummary(result)

	outputMap := result.Output()
	writeGitHubOutput("changes", value.EncodeJSONInline(outputMap))
	writeGitHubOutput("emojis", value.EncodeJSONInline(resourceField(defs, func(r *changes.Resource) string { return r.Emoji })))
	writeGitHubOutput("names", value.EncodeJSONInline(resourceField(defs, func(r *changes.Resource) string { return r.Name })))
	if outputMap.Len() > 0 {
		writeGitHubOutput("has_changes", "true")
	} else {
		writeGitHubOutput("has_changes", "false")
	}

	fmt.Println(value.EncodeJSONInline(outputMap))
	return nil
}

func logSummary(result *changes.Result) {
	if len(result.Ordered) == 0 && len(result.Deleted) == 0 {
		log.Info("no infrastructure changes detected")
		return
	}
	log.Info("detected infrastructure changes")
	log.IncreasePadding()
	for _, name := range result.Ordered {
		affected := result.ByType[name]
		if affected == nil {
			continue
		}
		log.WithField("paths", len(affected.Paths)).Info(name)
	}
	for name, paths := range result.Deleted {
		log.WithField("paths", len(paths)).Warn(name + " (deleted)")
	}
	log.DecreasePadding()
}

func resourceField(defs *changes.Definitions, field func(*changes.Resource) string) *value.Map {
	names := make([]string, 0, len(defs.Resources))
	for name := range defs.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := value.NewMap()
	for _, name := range names {
		out.Set(name, field(defs.Resources[name]))
	}
	return out
}

// writeGitHubOutput appends a key to $GITHUB_OUTPUT using a heredoc
// delimiter so multiline values stay intact. Without the env var the
// output goes to stderr for local runs.
func writeGitHubOutput(key, val string) {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		fmt.Fprintf(os.Stderr, "[GITHUB_OUTPUT] %s=%s\n", key, val)
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.WithError(err).Warn("could not write to GITHUB_OUTPUT")
		return
	}
	defer f.Close()

	raw := make([]byte, 16)
	_, _ = rand.Read(raw)
	delimiter := "ghodelimiter_" + hex.EncodeToString(raw)
	fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", key, delimiter, val, delimiter)
}
