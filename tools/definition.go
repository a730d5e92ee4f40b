package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition binds a tool name and JSON input schema to its implementation.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Function    func(input json.RawMessage) (string, error)
}

// GenerateSchema derives an inline JSON Schema object from T.
// Fields without omitempty are required; unknown properties are rejected.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := json.Marshal(schema)
	if err != nil {
		panic("tools: marshal schema: " + err.Error())
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic("tools: unmarshal schema: " + err.Error())
	}
	// Keep descriptors compact; the dialect is implied by the protocol.
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
