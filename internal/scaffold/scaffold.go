// Package scaffold wires a new resource type into the workflow
// configuration: the resource-definitions entry and the engine workflow
// job.
package scaffold

import (
	"fmt"
	"os"
	"strings"

	"github.com/opsfactor/tgrender/pkg/log"
)

// Options describe the resource type being added.
type Options struct {
	Name         string
	DisplayName  string
	Description  string
	Emoji        string
	Dependencies []string
	PathPattern  string
	TemplatePath string
}

// ApplyDefaults fills the derivable fields.
func (o *Options) ApplyDefaults() {
	if o.DisplayName == "" {
		words := strings.Split(o.Name, "-")
		for i, w := range words {
			if w != "" {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
		o.DisplayName = strings.Join(words, " ")
	}
	if o.Emoji == "" {
		o.Emoji = "✨"
	}
	if o.PathPattern == "" {
		o.PathPattern = fmt.Sprintf("live/**/%s/**", o.Name)
	}
	if o.TemplatePath == "" {
		o.TemplatePath = fmt.Sprintf("_common/templates/%s", o.Name)
	}
}

// UpdateDefinitions appends the resource block to the definitions file.
// Adding an already-present resource is a no-op; reusing another
// resource's emoji is an error because the summaries become ambiguous.
func UpdateDefinitions(path string, o *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read definitions: %w", err)
	}
	content := string(data)

	if strings.Contains(content, fmt.Sprintf("  %s:", o.Name)) {
		log.WithField("resource", o.Name).Info("resource already exists in definitions")
		return nil
	}
	if strings.Contains(content, fmt.Sprintf("emoji: %q", o.Emoji)) {
		return fmt.Errorf("emoji %q is already used by another resource", o.Emoji)
	}

	block := []string{
		"",
		fmt.Sprintf("  # %s", o.Description),
		fmt.Sprintf("  %s:", o.Name),
		fmt.Sprintf("    dependencies: [%s]", strings.Join(o.Dependencies, ", ")),
		fmt.Sprintf("    path_pattern: %q", o.PathPattern),
		fmt.Sprintf("    template_path: %q", o.TemplatePath),
		fmt.Sprintf("    emoji: %q", o.Emoji),
		fmt.Sprintf("    name: %q", o.DisplayName),
		fmt.Sprintf("    description: %q", o.Description),
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(strings.Join(block, "\n") + "\n"); err != nil {
		return fmt.Errorf("append definitions: %w", err)
	}
	log.WithField("file", path).Info("definitions updated")
	return nil
}

// UpdateWorkflow inserts the engine job for the resource before the
// merge-gate job and adds it to the gate's needs list.
func UpdateWorkflow(path string, o *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workflow: %w", err)
	}
	lines := strings.Split(string(data), "\n")

	for _, line := range lines {
		if strings.TrimSpace(line) == fmt.Sprintf("%s:", o.Name) {
			log.WithField("job", o.Name).Info("job already exists in workflow")
			return nil
		}
	}

	job := buildJob(o)

	insertIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "merge-gate:" {
			insertIdx = i
			break
		}
	}
	if insertIdx == -1 {
		log.Warn("merge-gate job not found, appending to end")
		insertIdx = len(lines)
	}

	updated := make([]string, 0, len(lines)+len(job))
	updated = append(updated, lines[:insertIdx]...)
	updated = append(updated, job...)
	updated = append(updated, lines[insertIdx:]...)

	updated = addGateNeed(updated, insertIdx+len(job), o.Name)

	if err := os.WriteFile(path, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}
	log.WithField("file", path).Info("workflow updated")
	return nil
}

func buildJob(o *Options) []string {
	needs := append([]string{"detect-changes"}, o.Dependencies...)
	return []string{
		"",
		fmt.Sprintf("  # %s", o.Description),
		fmt.Sprintf("  %s:", o.Name),
		fmt.Sprintf("    name: \"${{ needs.detect-changes.outputs.action_name }} ${{ fromJson(needs.detect-changes.outputs.emojis || '{}')['%s'] }} ${{ fromJson(needs.detect-changes.outputs.names || '{}')['%s'] }}\"", o.Name, o.Name),
		fmt.Sprintf("    needs: [%s]", strings.Join(needs, ", ")),
		fmt.Sprintf("    if: always() && !contains(needs.*.result, 'failure') && !contains(needs.*.result, 'cancelled') && fromJson(needs.detect-changes.outputs.changes || '{}').%s != null", o.Name),
		"    uses: ./.github/workflows/terragrunt-reusable.yaml",
		"    with:",
		"      mode: ${{ github.event_name == 'push' && 'apply' || 'validate' }}",
		fmt.Sprintf("      resource_type: ${{ fromJson(needs.detect-changes.outputs.changes || '{}')['%s'].config.id }}", o.Name),
		fmt.Sprintf("      resource_paths: ${{ toJson(fromJson(needs.detect-changes.outputs.changes || '{}').%s.paths) }}", o.Name),
		fmt.Sprintf("      template_path: ${{ fromJson(needs.detect-changes.outputs.changes || '{}').%s.config.template_path }}", o.Name),
		fmt.Sprintf("      resource_emoji: ${{ fromJson(needs.detect-changes.outputs.changes || '{}')['%s'].config.emoji }}", o.Name),
		fmt.Sprintf("      resource_description: ${{ fromJson(needs.detect-changes.outputs.changes || '{}')['%s'].config.description }}", o.Name),
		"    secrets: inherit",
	}
}

// addGateNeed appends the new job to merge-gate's needs list (six-space
// indented list items by convention).
func addGateNeed(lines []string, mergeGateIdx int, name string) []string {
	needsIdx := -1
	for i := mergeGateIdx; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "needs:" {
			needsIdx = i
			break
		}
	}
	if needsIdx == -1 {
		return lines
	}

	lastItem := -1
	for i := needsIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "- ") {
			lastItem = i
		} else if trimmed != "" && !strings.HasPrefix(lines[i], strings.Repeat(" ", 6)) {
			break
		}
	}
	if lastItem == -1 {
		log.Warn("could not find end of merge-gate needs list")
		return lines
	}

	updated := make([]string, 0, len(lines)+1)
	updated = append(updated, lines[:lastItem+1]...)
	updated = append(updated, fmt.Sprintf("      - %s", name))
	updated = append(updated, lines[lastItem+1:]...)
	log.WithField("job", name).Info("added to merge-gate dependencies")
	return updated
}
