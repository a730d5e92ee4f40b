// Package chat runs one conversation turn: ask the model, execute the tool
// calls it requests through the connector registry, and ask again with the
// results.
//
// Flow:
//
//	user(text) -> assistant(tool calls) -> tool(results) -> assistant(text)
//
// Invariant: every tool result is matched to its call by correlation ID, and
// results are sent back in the order the calls were emitted.
package chat
