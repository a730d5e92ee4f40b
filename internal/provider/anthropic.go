package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/toolchat/internal/llm"
	"github.com/petasbytes/toolchat/memory"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// DefaultMaxTokens caps a reply when the request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

// Anthropic talks to the Messages API.
type Anthropic struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropic builds a client. Without option.WithAPIKey the SDK reads
// ANTHROPIC_API_KEY from the environment.
func NewAnthropic(model string, opts ...option.RequestOption) *Anthropic {
	c := anthropic.NewClient(opts...)
	if model == "" {
		model = string(DefaultAnthropicModel)
	}
	return &Anthropic{client: &c, model: anthropic.Model(model)}
}

func (a *Anthropic) Name() string { return string(a.model) }

func (a *Anthropic) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(maxTokens(req.MaxTokens)),
		Messages:  anthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropicTools(req.Tools)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, err
	}

	var (
		texts []string
		out   llm.Response
	)
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			texts = append(texts, v.Text)
		case anthropic.ToolUseBlock:
			args, err := decodeArgs([]byte(v.JSON.Input.Raw()))
			if err != nil {
				return llm.Response{}, fmt.Errorf("tool_use %s: decode input: %w", v.ID, err)
			}
			out.ToolCalls = append(out.ToolCalls, memory.ToolCallRequest{ID: v.ID, Name: v.Name, Args: args})
		}
	}
	out.Text = strings.Join(texts, "\n")
	return out, nil
}

// anthropicMessages keeps tool_use and tool_result adjacent: an assistant
// message with calls is followed by a user message holding their results.
func anthropicMessages(msgs []llm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		case llm.RoleAssistant:
			blocks := []anthropic.ContentBlockParamUnion{}
			if m.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Text))
			}
			for _, c := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    c.ID,
					Name:  c.Name,
					Input: nonNilArgs(c.Args),
				}})
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case llm.RoleTool:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolResults))
			for _, r := range m.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(r.ID, r.Result, false))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func anthropicTools(tools []llm.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.InputSchema["properties"],
				Required:   requiredFields(t.InputSchema),
			},
		}})
	}
	return out
}

// requiredFields accepts both []string (generated schemas) and []any (schemas
// decoded from JSON).
func requiredFields(schema map[string]any) []string {
	switch v := schema["required"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, f := range v {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// decodeArgs keeps integers exact by decoding numbers as json.Number.
func decodeArgs(raw []byte) (map[string]any, error) {
	args := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return args, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func nonNilArgs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	return args
}

func maxTokens(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
