package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolchat/internal/chat"
	"github.com/petasbytes/toolchat/internal/connector"
	"github.com/petasbytes/toolchat/internal/errorsx"
	"github.com/petasbytes/toolchat/internal/llm"
	"github.com/petasbytes/toolchat/internal/session"
	"github.com/petasbytes/toolchat/memory"
	"github.com/petasbytes/toolchat/tools"
)

type scriptedModel struct {
	mu        sync.Mutex
	responses []llm.Response
	requests  []llm.Request
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i >= len(m.responses) {
		return llm.Response{}, errors.New("unexpected model call")
	}
	return m.responses[i], nil
}

// localTools registers the arithmetic definitions without MCP.
func localTools(defs ...tools.ToolDefinition) session.ConnectFunc {
	return func(context.Context) (*connector.Registry, error) {
		reg := connector.NewRegistry()
		for _, def := range defs {
			def := def
			t, err := connector.NewTool(connector.Descriptor{Name: def.Name, Description: def.Description, InputSchema: def.InputSchema, Provider: "local"},
				func(_ context.Context, args map[string]any) (string, error) {
					b, err := json.Marshal(args)
					if err != nil {
						return "", err
					}
					return def.Function(b)
				})
			if err != nil {
				return nil, err
			}
			reg.Register(t)
		}
		return reg, nil
	}
}

func TestSend_SevenPlusFive(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		{ToolCalls: []memory.ToolCallRequest{{ID: "c1", Name: "add", Args: map[string]any{"a": 7, "b": 5}}}},
		{Text: "The answer is 12."},
	}}
	s := session.New(&chat.Orchestrator{Model: model}, localTools(tools.Registry()...), nil)
	t.Cleanup(func() { _ = s.Close() })

	msg, err := s.Send(context.Background(), "What is 7 plus 5?")
	require.NoError(t, err)
	assert.Equal(t, memory.KindText, msg.Kind)
	assert.Equal(t, "The answer is 12.", msg.Text)
	require.Len(t, msg.ToolResults, 1)
	assert.Equal(t, "12", msg.ToolResults[0].Result)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, memory.RoleUser, h[0].Role)
	assert.Equal(t, "What is 7 plus 5?", h[0].Text)
	assert.Equal(t, msg, h[1])
}

func TestSend_Hello(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{{Text: "Hi there!"}}}
	s := session.New(&chat.Orchestrator{Model: model}, localTools(tools.Registry()...), nil)

	msg, err := s.Send(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", msg.Text)
	assert.Empty(t, msg.ToolResults)
}

func TestSend_MissingToolBecomesErrorMessage(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		{ToolCalls: []memory.ToolCallRequest{{ID: "c1", Name: "multiply", Args: map[string]any{"a": 6, "b": 7}}}},
	}}
	s := session.New(&chat.Orchestrator{Model: model}, localTools(tools.AddDefinition), nil)

	msg, err := s.Send(context.Background(), "What is 6 times 7?")
	require.NoError(t, err, "turn failures must not escape Send")
	assert.True(t, msg.IsError())
	assert.True(t, strings.HasPrefix(msg.Text, memory.ErrorPrefix), msg.Text)
	assert.Contains(t, msg.Text, "multiply")
	assert.Contains(t, msg.Detail, string(errorsx.ReasonUnknownTool))
	assert.Len(t, s.History(), 2)

	// The session keeps working after a failed turn.
	model.responses = append(model.responses, llm.Response{Text: "still here"})
	next, err := s.Send(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "still here", next.Text)
}

func TestSend_ConnectFailureRetriedNextTurn(t *testing.T) {
	attempts := 0
	connect := func(ctx context.Context) (*connector.Registry, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return localTools(tools.AddDefinition)(ctx)
	}
	model := &scriptedModel{responses: []llm.Response{{Text: "connected now"}}}
	s := session.New(&chat.Orchestrator{Model: model}, connect, nil)

	st := s.Status()
	assert.True(t, st.Pending)
	assert.Zero(t, attempts, "status must not connect before the first message")

	first, err := s.Send(context.Background(), "Hello")
	require.NoError(t, err)
	assert.True(t, first.IsError())
	assert.Contains(t, first.Detail, string(errorsx.ReasonProviderUnreachable))
	assert.Contains(t, first.Detail, "hint: "+errorsx.Hint(errorsx.ReasonProviderUnreachable))
	assert.Empty(t, model.requests, "model is not called without tools")

	st = s.Status()
	assert.False(t, st.Pending)
	assert.False(t, st.Connected)
	assert.Contains(t, st.Error, "connection refused")

	second, err := s.Send(context.Background(), "Hello again")
	require.NoError(t, err)
	assert.Equal(t, "connected now", second.Text)
	assert.Equal(t, 2, attempts)

	st = s.Status()
	assert.True(t, st.Connected)
	assert.Equal(t, 1, st.ToolCount)
	assert.Equal(t, 2, attempts, "status reuses the open registry")
}

func TestSend_EmptyPrompt(t *testing.T) {
	s := session.New(&chat.Orchestrator{Model: &scriptedModel{}}, nil, nil)
	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, session.ErrEmptyPrompt)
	assert.Empty(t, s.History())
}

func TestClearAndExport(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{{Text: "one"}}}
	s := session.New(&chat.Orchestrator{Model: model}, nil, nil)
	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, s.ExportTranscript(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []memory.Message
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Len(t, got, 2)

	s.Clear()
	assert.Empty(t, s.History())
}

func TestClose_Idempotent(t *testing.T) {
	s := session.New(&chat.Orchestrator{Model: &scriptedModel{}}, localTools(tools.AddDefinition), nil)
	_, err := s.Registry(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	st := s.Status()
	assert.False(t, st.Connected)
	assert.NotEmpty(t, st.Error)
}
