// Package tools defines tool contracts, the arithmetic tool implementations
// and the MCP server that exposes them.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Arithmetic tools over int64: add, subtract, multiply, divide, remainder, power.
//   - NewServer: register definitions on an MCP server.
//   - Invariants: tools are pure and stateless; arithmetic faults are reported, never masked.
package tools
