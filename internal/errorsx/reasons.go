package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonProviderUnreachable ReasonCode = "provider_unreachable"
	ReasonUnknownTool         ReasonCode = "unknown_tool"
	ReasonToolExecution       ReasonCode = "tool_execution"
	ReasonModelRequest        ReasonCode = "model_request"

	// ReasonInternal flags broken invariants inside a turn, such as mismatched tool result IDs.
	ReasonInternal ReasonCode = "internal"
)

var hints = map[ReasonCode]string{
	ReasonProviderUnreachable: "check the providers in the config and that each tool server is running; the next message retries",
	ReasonUnknownTool:         "the model asked for a tool no connected provider offers; see /tools",
	ReasonToolExecution:       "the tool server reported a failure; its message is above",
	ReasonModelRequest:        "check the model name, API key and history.token_budget",
}

// Hint is a one-line suggestion for the operator, empty when none applies.
func Hint(reason ReasonCode) string {
	return hints[reason]
}
