package windowing_test

import (
	"github.com/petasbytes/toolchat/internal/llm"
	"github.com/petasbytes/toolchat/internal/windowing"
	"github.com/petasbytes/toolchat/memory"
)

// User message constructor
func User(text string) llm.Message {
	return llm.UserText(text)
}

// Assistant text constructor
func Asst(text string) llm.Message {
	return llm.AssistantText(text)
}

// Assistant tool-call message; args are empty so only the name counts.
func Calls(ids ...string) llm.Message {
	m := llm.Message{Role: llm.RoleAssistant}
	for _, id := range ids {
		m.ToolCalls = append(m.ToolCalls, memory.ToolCallRequest{ID: id, Name: "t"})
	}
	return m
}

// Tool results message with a fixed payload per result.
func Results(payload string, ids ...string) llm.Message {
	m := llm.Message{Role: llm.RoleTool}
	for _, id := range ids {
		m.ToolResults = append(m.ToolResults, memory.ToolCallResult{ID: id, Tool: "t", Result: payload})
	}
	return m
}

// groupsEqual is a small utility used by grouping tests.
func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i].Kind != want[i].Kind || got[i].Start != want[i].Start || got[i].End != want[i].End {
			return false
		}
	}
	return true
}
