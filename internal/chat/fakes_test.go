package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolchat/internal/connector"
	"github.com/petasbytes/toolchat/internal/llm"
	"github.com/petasbytes/toolchat/tools"
)

// scriptedModel replays responses in order and records every request.
type scriptedModel struct {
	mu        sync.Mutex
	responses []llm.Response
	errs      []error
	requests  []llm.Request
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return llm.Response{}, m.errs[i]
	}
	if i >= len(m.responses) {
		return llm.Response{}, errors.New("unexpected model call")
	}
	return m.responses[i], nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// invocation is one observed tool call.
type invocation struct {
	Tool string
	Args map[string]any
}

type recorder struct {
	mu   sync.Mutex
	seen []invocation
}

func (r *recorder) add(name string, args map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, invocation{Tool: name, Args: args})
}

func (r *recorder) all() []invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]invocation(nil), r.seen...)
}

// arithRegistry registers the arithmetic definitions as local tools and
// records every invocation.
func arithRegistry(t *testing.T, defs ...tools.ToolDefinition) (*connector.Registry, *recorder) {
	t.Helper()
	rec := &recorder{}
	reg := connector.NewRegistry()
	for _, def := range defs {
		def := def
		tool, err := connector.NewTool(connector.Descriptor{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
			Provider:    "local",
		}, func(_ context.Context, args map[string]any) (string, error) {
			rec.add(def.Name, args)
			b, err := json.Marshal(args)
			if err != nil {
				return "", err
			}
			return def.Function(b)
		})
		require.NoError(t, err)
		reg.Register(tool)
	}
	return reg, rec
}

// register adds an ad-hoc tool without an input schema.
func register(t *testing.T, reg *connector.Registry, name string, h connector.Handler) {
	t.Helper()
	tool, err := connector.NewTool(connector.Descriptor{Name: name, Description: name, Provider: "local"}, h)
	require.NoError(t, err)
	reg.Register(tool)
}
