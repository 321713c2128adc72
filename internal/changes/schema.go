package changes

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateJSONSchema returns the JSON Schema for resource-definitions.yml,
// usable for IDE autocompletion and validation.
func GenerateJSONSchema() string {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}

	schema := r.Reflect(&Definitions{})
	schema.ID = "https://github.com/opsfactor/tgrender/raw/main/resource-definitions.schema.json"
	schema.Title = "Resource Definitions"
	schema.Description = "Schema for the workflow resource-definitions file consumed by tgrender changes"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
