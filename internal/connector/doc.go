// Package connector presents MCP tool providers as one flat, name-addressed
// tool registry.
//
// Providers are reached over stdio (spawn-and-pipe), streamable HTTP or SSE.
// Connect lists every provider's tools once; the resulting Registry is
// shared read-only for the rest of the session and never refreshed.
//
// Errors carry errorsx reason codes:
//   - provider_unreachable: a provider could not be connected or listed
//   - unknown_tool: Invoke was asked for a name that is not registered
//   - tool_execution: argument validation, transport or tool failure
package connector
