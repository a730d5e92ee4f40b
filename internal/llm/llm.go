// Package llm defines the provider-neutral exchange with a language model.
package llm

import (
	"context"

	"github.com/petasbytes/toolchat/memory"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool carries tool results back to the model.
	RoleTool Role = "tool"
)

// Message is one entry of a model request.
//   - user: Text
//   - assistant: Text and/or ToolCalls
//   - tool: ToolResults, each matched to a prior ToolCall by ID
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []memory.ToolCallRequest
	ToolResults []memory.ToolCallResult
}

// Tool is a tool offered to the model.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

type Request struct {
	System    string
	Messages  []Message
	Tools     []Tool
	MaxTokens int
}

// Response is either plain text, tool-call requests, or both.
type Response struct {
	Text      string
	ToolCalls []memory.ToolCallRequest
}

// Model is a chat model able to request tool calls.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}
