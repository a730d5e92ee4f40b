package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/petasbytes/toolchat/internal/connector"
	"github.com/petasbytes/toolchat/internal/errorsx"
	"github.com/petasbytes/toolchat/internal/llm"
	"github.com/petasbytes/toolchat/internal/telemetry"
	"github.com/petasbytes/toolchat/internal/windowing"
	"github.com/petasbytes/toolchat/memory"
)

// HistoryMode selects what prior conversation is sent with a prompt.
type HistoryMode string

const (
	// HistoryLatest sends only the current prompt.
	HistoryLatest HistoryMode = "latest"
	// HistoryFull sends prior text turns, windowed to TokenBudget.
	HistoryFull HistoryMode = "full"
)

// DefaultTokenBudget applies in HistoryFull mode when TokenBudget is unset.
const DefaultTokenBudget = 8000

// Reply is the outcome of a successful turn.
type Reply struct {
	Text      string
	ToolCalls []memory.ToolCallResult
	TurnID    string
}

type Orchestrator struct {
	Model    llm.Model
	Executor *Executor

	HistoryMode  HistoryMode
	TokenBudget  int
	ModelTimeout time.Duration
	System       string
	MaxTokens    int

	Log *slog.Logger
}

// Respond runs one turn for userText. history holds the messages before this
// prompt; reg may be nil, in which case the model is offered no tools.
//
// At most one round of tool calls is executed. Failures are returned with a
// reason code (errorsx) and nothing is retried.
func (o *Orchestrator) Respond(ctx context.Context, userText string, history []memory.Message, reg *connector.Registry) (reply Reply, err error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	log := o.logger().With("turn_id", turnID)
	start := time.Now()
	telemetry.TurnStarted(ctx, userText)
	defer func() {
		if err != nil {
			telemetry.TurnFailed(ctx, string(errorsx.Reason(err)))
			return
		}
		telemetry.TurnCompleted(ctx, len(reply.ToolCalls), time.Since(start))
	}()

	msgs, err := o.buildMessages(userText, history)
	if err != nil {
		return Reply{}, err
	}
	req := llm.Request{
		System:    o.System,
		Messages:  msgs,
		Tools:     offeredTools(reg),
		MaxTokens: o.MaxTokens,
	}

	first, err := o.generate(ctx, telemetry.PhaseInitial, req)
	if err != nil {
		return Reply{}, err
	}
	if len(first.ToolCalls) == 0 {
		log.Debug("turn answered without tools")
		return Reply{Text: first.Text, ToolCalls: []memory.ToolCallResult{}, TurnID: turnID}, nil
	}

	planned, requests, err := plan(first.ToolCalls, reg)
	if err != nil {
		log.Warn("tool plan rejected", "err", err)
		return Reply{}, err
	}
	log.Debug("executing tool calls", "count", len(planned), "tools", lo.Map(requests, func(r memory.ToolCallRequest, _ int) string { return r.Name }))

	results, err := o.executor().Run(ctx, planned)
	if err != nil {
		return Reply{}, err
	}

	req.Messages = append(append([]llm.Message{}, msgs...),
		llm.Message{Role: llm.RoleAssistant, Text: first.Text, ToolCalls: requests},
		llm.Message{Role: llm.RoleTool, ToolResults: results},
	)
	final, err := o.generate(ctx, telemetry.PhaseFinal, req)
	if err != nil {
		return Reply{}, err
	}
	if len(final.ToolCalls) > 0 {
		log.Warn("ignoring tool calls requested after tool results", "count", len(final.ToolCalls))
	}
	return Reply{Text: final.Text, ToolCalls: results, TurnID: turnID}, nil
}

func (o *Orchestrator) generate(ctx context.Context, phase string, req llm.Request) (llm.Response, error) {
	if o.Model == nil {
		return llm.Response{}, errorsx.Errorf(errorsx.ReasonModelRequest, "no model configured")
	}
	if o.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.ModelTimeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := o.Model.Generate(ctx, req)
	telemetry.ModelCall(ctx, o.Model.Name(), phase, time.Since(start), len(resp.ToolCalls), err)
	if err != nil {
		return llm.Response{}, errorsx.Errorf(errorsx.ReasonModelRequest, "model request (%s): %w", phase, err)
	}
	return resp, nil
}

// buildMessages returns the request conversation ending with userText.
func (o *Orchestrator) buildMessages(userText string, history []memory.Message) ([]llm.Message, error) {
	prompt := llm.UserText(userText)
	if o.HistoryMode != HistoryFull {
		return []llm.Message{prompt}, nil
	}

	msgs := append(priorMessages(history), prompt)
	budget := o.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	window, stats := windowing.PrepareSendWindow(msgs, budget, windowing.HeuristicCounter{})
	o.logger().Debug("history window prepared",
		"budget", stats.Budget,
		"total_estimated", stats.Total,
		"included_groups", stats.IncludedGroups,
		"skipped_groups", stats.SkippedGroups,
	)
	if stats.OverBudgetNewest {
		return nil, errorsx.Errorf(errorsx.ReasonModelRequest, "prompt exceeds the history token budget of %d", budget)
	}
	return window, nil
}

// priorMessages replays successful turns. An assistant reply that used tools
// expands to its calls, their results and the final text so the pair stays intact.
func priorMessages(history []memory.Message) []llm.Message {
	ok := lo.Filter(history, func(m memory.Message, _ int) bool { return !m.IsError() })
	out := make([]llm.Message, 0, len(ok))
	for _, m := range ok {
		switch m.Role {
		case memory.RoleUser:
			out = append(out, llm.UserText(m.Text))
		case memory.RoleAssistant:
			if len(m.ToolResults) > 0 {
				calls := lo.Map(m.ToolResults, func(r memory.ToolCallResult, _ int) memory.ToolCallRequest {
					return memory.ToolCallRequest{ID: r.ID, Name: r.Tool, Args: r.Args}
				})
				out = append(out,
					llm.Message{Role: llm.RoleAssistant, ToolCalls: calls},
					llm.Message{Role: llm.RoleTool, ToolResults: m.ToolResults},
				)
			}
			// An empty reply carries no content block and is rejected by backends.
			if m.Text != "" {
				out = append(out, llm.AssistantText(m.Text))
			}
		}
	}
	return out
}

// plan resolves every requested tool before any runs. Calls without a
// correlation ID get a UUID.
func plan(calls []memory.ToolCallRequest, reg *connector.Registry) ([]PlannedCall, []memory.ToolCallRequest, error) {
	planned := make([]PlannedCall, 0, len(calls))
	requests := make([]memory.ToolCallRequest, 0, len(calls))
	for _, c := range calls {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		var (
			t  *connector.Tool
			ok bool
		)
		if reg != nil {
			t, ok = reg.Lookup(c.Name)
		}
		if !ok {
			return nil, nil, connector.UnknownToolError(c.Name)
		}
		planned = append(planned, PlannedCall{Request: c, Tool: t})
		requests = append(requests, c)
	}
	return planned, requests, nil
}

func offeredTools(reg *connector.Registry) []llm.Tool {
	if reg == nil {
		return nil
	}
	return lo.Map(reg.Descriptors(), func(d connector.Descriptor, _ int) llm.Tool {
		return llm.Tool{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
	})
}

func (o *Orchestrator) executor() *Executor {
	if o.Executor != nil {
		return o.Executor
	}
	return &Executor{Parallelism: 1, Log: o.Log}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}
