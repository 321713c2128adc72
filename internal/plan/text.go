// Package plan turns terraform/tofu plan output, either the human-readable
// log or the show -json document, into one structured summary.
package plan

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opsfactor/tgrender/internal/value"
)

// Counts aggregates planned actions.
type Counts struct {
	ToCreate  int `json:"to_create"`
	ToUpdate  int `json:"to_update"`
	ToDestroy int `json:"to_destroy"`
	ToReplace int `json:"to_replace"`
}

// ResourceChange is one planned resource change.
type ResourceChange struct {
	Action     string     `json:"action"`
	Type       string     `json:"resource_type"`
	Name       string     `json:"resource_name"`
	Address    string     `json:"address,omitempty"`
	Attributes *value.Map `json:"attributes,omitempty"`
}

// DataSource is a data source read observed in the log.
type DataSource struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Summary is the parsed plan.
type Summary struct {
	Timestamp   string           `json:"timestamp"`
	Summary     Counts           `json:"summary"`
	Resources   []ResourceChange `json:"resources"`
	DataSources []DataSource     `json:"data_sources"`
}

var (
	reANSI      = regexp.MustCompile(`\x1b(?:[@-Z\\^_]|\[[0-?]*[ -/]*[@-~])`)
	reLogPrefix = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3} STDOUT tofu:\s*`)
	reResource  = regexp.MustCompile(`resource "([^"]+)" "([^"]+)"`)
	reDataRead  = regexp.MustCompile(`data\.([^:]+):\s*Read complete`)
	reDigits    = regexp.MustCompile(`^\d+$`)
)

// ParseText parses raw plan log output: ANSI colours and log timestamps
// are stripped, resource change blocks and data source reads extracted.
func ParseText(raw string) *Summary {
	clean := reANSI.ReplaceAllString(raw, "")
	lines := strings.Split(clean, "\n")

	result := &Summary{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Resources:   []ResourceChange{},
		DataSources: []DataSource{},
	}

	for i := range lines {
		line := strings.TrimSpace(lines[i])
		line = reLogPrefix.ReplaceAllString(line, "")

		switch {
		case strings.Contains(line, "+ resource ") ||
			strings.Contains(line, "~ resource ") ||
			strings.Contains(line, "- resource ") ||
			strings.Contains(line, "-/+ resource "):
			change := parseResourceBlock(lines, i)
			if change.Type == "" {
				continue
			}
			result.Resources = append(result.Resources, change)
			switch change.Action {
			case "create":
				result.Summary.ToCreate++
			case "update":
				result.Summary.ToUpdate++
			case "destroy":
				result.Summary.ToDestroy++
			case "replace":
				result.Summary.ToReplace++
			}
		case strings.Contains(line, "data.") && strings.Contains(line, "Read complete"):
			if m := reDataRead.FindStringSubmatch(line); m != nil {
				result.DataSources = append(result.DataSources, DataSource{
					Name:   m[1],
					Status: "read_complete",
				})
			}
		}
	}
	return result
}

func parseResourceBlock(lines []string, start int) ResourceChange {
	change := ResourceChange{Attributes: value.NewMap()}

	header := strings.TrimSpace(lines[start])
	header = reLogPrefix.ReplaceAllString(header, "")
	switch {
	case strings.HasPrefix(header, "-/+ "):
		change.Action = "replace"
		header = header[4:]
	case strings.HasPrefix(header, "+ "):
		change.Action = "create"
		header = header[2:]
	case strings.HasPrefix(header, "~ "):
		change.Action = "update"
		header = header[2:]
	case strings.HasPrefix(header, "- "):
		change.Action = "destroy"
		header = header[2:]
	}

	if m := reResource.FindStringSubmatch(header); m != nil {
		change.Type = m[1]
		change.Name = m[2]
	}

	for i := start + 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "+ resource ") {
			break
		}
		if !strings.HasPrefix(line, "+ ") && !strings.HasPrefix(line, "~ ") && !strings.HasPrefix(line, "- ") {
			continue
		}
		attr := strings.TrimSpace(line[2:])
		key, rawVal, found := strings.Cut(attr, " = ")
		if !found {
			continue
		}
		change.Attributes.Set(strings.TrimSpace(key), attributeValue(strings.TrimSpace(rawVal)))
	}
	return change
}

// attributeValue normalises a plan attribute value: computed values become
// null, quoted strings are unquoted, booleans and integers are typed, and
// complex structures stay as raw text.
func attributeValue(raw string) any {
	switch {
	case raw == "(known after apply)":
		return nil
	case len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`):
		return raw[1 : len(raw)-1]
	case raw == "true":
		return true
	case raw == "false":
		return false
	case reDigits.MatchString(raw):
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
	}
	return raw
}
