package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/petasbytes/toolchat/internal/llm"
	"github.com/petasbytes/toolchat/memory"
)

const DefaultOpenAIModel = "gpt-4o"

// OpenAI talks to the chat completions API through langchaingo.
type OpenAI struct {
	model string
	llm   llms.Model
}

// NewOpenAI builds a client. Without openai.WithToken langchaingo reads
// OPENAI_API_KEY from the environment.
func NewOpenAI(model string, opts ...openai.Option) (*OpenAI, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	c, err := openai.New(append([]openai.Option{openai.WithModel(model)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &OpenAI{model: model, llm: c}, nil
}

func (o *OpenAI) Name() string { return o.model }

func (o *OpenAI) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	msgs, err := openAIMessages(req)
	if err != nil {
		return llm.Response{}, err
	}
	callOpts := []llms.CallOption{llms.WithMaxTokens(maxTokens(req.MaxTokens))}
	if len(req.Tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(openAITools(req.Tools)))
	}

	resp, err := o.llm.GenerateContent(ctx, msgs, callOpts...)
	if err != nil {
		return llm.Response{}, err
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, errors.New("openai: response has no choices")
	}

	choice := resp.Choices[0]
	out := llm.Response{Text: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		args, err := decodeArgs([]byte(tc.FunctionCall.Arguments))
		if err != nil {
			return llm.Response{}, fmt.Errorf("tool call %s: decode arguments: %w", tc.ID, err)
		}
		out.ToolCalls = append(out.ToolCalls, memory.ToolCallRequest{ID: tc.ID, Name: tc.FunctionCall.Name, Args: args})
	}
	return out, nil
}

// openAIMessages emits one tool message per result; the API rejects a tool
// message that answers several calls.
func openAIMessages(req llm.Request) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Text))
		case llm.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if m.Text != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: m.Text})
			}
			for _, c := range m.ToolCalls {
				args, err := json.Marshal(nonNilArgs(c.Args))
				if err != nil {
					return nil, fmt.Errorf("tool call %s: encode arguments: %w", c.ID, err)
				}
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:           c.ID,
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: c.Name, Arguments: string(args)},
				})
			}
			out = append(out, mc)
		case llm.RoleTool:
			for _, r := range m.ToolResults {
				out = append(out, llms.MessageContent{
					Role:  llms.ChatMessageTypeTool,
					Parts: []llms.ContentPart{llms.ToolCallResponse{ToolCallID: r.ID, Name: r.Tool, Content: r.Result}},
				})
			}
		}
	}
	return out, nil
}

func openAITools(tools []llm.Tool) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		params := t.InputSchema
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
