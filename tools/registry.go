package tools

// Registry returns all tool definitions served by the arithmetic server.
func Registry() []ToolDefinition {
	return []ToolDefinition{
		AddDefinition,
		SubtractDefinition,
		MultiplyDefinition,
		DivideDefinition,
		RemainderDefinition,
		PowerDefinition,
	}
}
