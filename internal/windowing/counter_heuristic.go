package windowing

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/petasbytes/toolchat/internal/llm"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m llm.Message) int
	CountGroup(g Group, all []llm.Message) int
}

// HeuristicCounter is the default deterministic estimator.
// Rules:
//   - text: rune count of Message.Text
//   - tool call: runes of the name plus runes of the JSON-encoded arguments
//   - tool result: runes of the serialized result
//
// Every block adds a fixed overhead.
type HeuristicCounter struct{}

// Fixed per-block overhead; changing this requires updating the guard test.
const blockOverhead = 4

func (HeuristicCounter) CountMessage(m llm.Message) int {
	total := 0
	if m.Text != "" || (len(m.ToolCalls) == 0 && len(m.ToolResults) == 0) {
		total += utf8.RuneCountInString(m.Text) + blockOverhead
	}
	for _, c := range m.ToolCalls {
		args, _ := json.Marshal(c.Args)
		total += utf8.RuneCountInString(c.Name) + utf8.RuneCount(args) + blockOverhead
	}
	for _, r := range m.ToolResults {
		total += utf8.RuneCountInString(r.Result) + blockOverhead
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []llm.Message) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}
