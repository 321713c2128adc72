package plan

import (
	"encoding/json"
	"fmt"
	"time"

	tfjson "github.com/hashicorp/terraform-json"
)

// ParseJSON parses a terraform show -json plan document into the same
// summary shape as the text parser. No-op changes are dropped.
func ParseJSON(data []byte) (*Summary, error) {
	var p tfjson.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan JSON: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan format: %w", err)
	}

	result := &Summary{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Resources:   []ResourceChange{},
		DataSources: []DataSource{},
	}

	for _, rc := range p.ResourceChanges {
		if rc == nil || rc.Change == nil {
			continue
		}
		action := determineAction(rc.Change.Actions)
		if action == "no-op" || action == "read" {
			continue
		}
		switch action {
		case "create":
			result.Summary.ToCreate++
		case "update":
			result.Summary.ToUpdate++
		case "destroy":
			result.Summary.ToDestroy++
		case "replace":
			result.Summary.ToReplace++
		}
		result.Resources = append(result.Resources, ResourceChange{
			Action:  action,
			Type:    rc.Type,
			Name:    rc.Name,
			Address: rc.Address,
		})
	}
	return result, nil
}

func determineAction(actions tfjson.Actions) string {
	switch {
	case actions.NoOp():
		return "no-op"
	case actions.Read():
		return "read"
	case actions.Create():
		return "create"
	case actions.Update():
		return "update"
	case actions.Delete():
		return "destroy"
	case actions.Replace():
		return "replace"
	}
	return "no-op"
}
