package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolchat/internal/errorsx"
	"github.com/petasbytes/toolchat/tools"
)

// stubServers routes each provider name to an in-memory MCP server.
func stubServers(t *testing.T, servers map[string]*mcp.Server) *atomic.Int32 {
	t.Helper()
	var builds atomic.Int32
	original := transportBuilder
	transportBuilder = func(ctx context.Context, pc ProviderConfig) (mcp.Transport, error) {
		builds.Add(1)
		server, ok := servers[pc.Name]
		if !ok {
			return nil, fmt.Errorf("no route to %s", pc.Name)
		}
		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		ss, err := server.Connect(ctx, serverTransport, nil)
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { _ = ss.Close() })
		return clientTransport, nil
	}
	t.Cleanup(func() { transportBuilder = original })
	return &builds
}

func echoServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "echo", Version: "test"}, nil)
	server.AddTool(&mcp.Tool{
		Name:        "echo",
		Description: "Echo input",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []any{"text"},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var payload map[string]string
		if err := json.Unmarshal(req.Params.Arguments, &payload); err != nil {
			return nil, err
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "echo:" + payload["text"]}}}, nil
	})
	// Shadows the math server's add.
	server.AddTool(&mcp.Tool{
		Name:        "add",
		Description: "Always forty-two",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "42"}}}, nil
	})
	return server
}

func mathServer() *mcp.Server {
	return tools.NewServer("math", "test", tools.Registry())
}

func TestConnect_MergesProvidersAndInvokes(t *testing.T) {
	stubServers(t, map[string]*mcp.Server{"math": mathServer()})

	reg, err := Connect(context.Background(), []ProviderConfig{{Name: "math", Transport: "stdio", Command: "unused"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	assert.Equal(t, []string{"add", "divide", "multiply", "power", "remainder", "subtract"}, reg.Names())
	require.Len(t, reg.Providers(), 1)
	assert.True(t, reg.Providers()[0].Connected)
	assert.Equal(t, 6, reg.Providers()[0].Tools)

	tool, ok := reg.Lookup("add")
	require.True(t, ok)
	assert.Equal(t, "math", tool.Provider)
	assert.Equal(t, "object", tool.InputSchema["type"])

	out, err := reg.Invoke(context.Background(), "add", map[string]any{"a": 7, "b": 5})
	require.NoError(t, err)
	assert.Equal(t, "12", out)
}

func TestConnect_LastRegistrationWins(t *testing.T) {
	stubServers(t, map[string]*mcp.Server{"math": mathServer(), "echo": echoServer()})

	reg, err := Connect(context.Background(), []ProviderConfig{{Name: "math"}, {Name: "echo"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	assert.Equal(t, 7, reg.Len())
	tool, ok := reg.Lookup("add")
	require.True(t, ok)
	assert.Equal(t, "echo", tool.Provider)

	out, err := reg.Invoke(context.Background(), "add", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", out)

	// Shadowed names move to their latest registration position: after every
	// math tool. Servers list their tools by name, so echo's "echo" follows.
	var names []string
	for _, d := range reg.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"divide", "multiply", "power", "remainder", "subtract", "add", "echo"}, names)
}

func TestConnect_AbortPolicyFailsWithProviderUnreachable(t *testing.T) {
	builds := stubServers(t, map[string]*mcp.Server{"math": mathServer()})

	_, err := Connect(context.Background(), []ProviderConfig{{Name: "math"}, {Name: "offline"}, {Name: "never"}})
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonProviderUnreachable), "reason = %s", errorsx.Reason(err))
	assert.Contains(t, err.Error(), `"offline"`)
	assert.EqualValues(t, 2, builds.Load(), "providers after the failing one must not be contacted")
}

func TestConnect_SkipPolicyContinues(t *testing.T) {
	stubServers(t, map[string]*mcp.Server{"echo": echoServer()})

	reg, err := Connect(context.Background(),
		[]ProviderConfig{{Name: "offline"}, {Name: "echo"}},
		WithFailurePolicy(FailSkip),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	status := reg.Providers()
	require.Len(t, status, 2)
	assert.False(t, status[0].Connected)
	assert.NotEmpty(t, status[0].Error)
	assert.True(t, status[1].Connected)
	assert.Equal(t, 2, reg.Len())
}

func TestConnect_EmptyProviderList(t *testing.T) {
	reg, err := Connect(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Descriptors())
}

func TestRegistry_InvokeUnknownTool(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	tool, err := NewTool(Descriptor{Name: "add"}, func(context.Context, map[string]any) (string, error) {
		calls.Add(1)
		return "", nil
	})
	require.NoError(t, err)
	reg.Register(tool)

	_, err = reg.Invoke(context.Background(), "multiply", map[string]any{"a": 1, "b": 2})
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonUnknownTool))
	assert.Zero(t, calls.Load())

	_, ok := reg.Lookup("multiply")
	assert.False(t, ok)
}

func TestTool_CallValidatesArguments(t *testing.T) {
	var calls atomic.Int32
	tool, err := NewTool(Descriptor{Name: "add", InputSchema: tools.BinaryInputSchema},
		func(context.Context, map[string]any) (string, error) {
			calls.Add(1)
			return "ok", nil
		})
	require.NoError(t, err)

	_, err = tool.Call(context.Background(), map[string]any{"a": "seven", "b": 5})
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonToolExecution))
	assert.Zero(t, calls.Load())

	out, err := tool.Call(context.Background(), map[string]any{"a": 7, "b": 5})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestTool_HandlerErrorIsToolExecution(t *testing.T) {
	boom := errors.New("boom")
	tool, _ := NewTool(Descriptor{Name: "x"}, func(context.Context, map[string]any) (string, error) {
		return "", boom
	})
	_, err := tool.Call(context.Background(), nil)
	require.ErrorIs(t, err, boom)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonToolExecution))
}

func TestInvoke_ToolFaultIsToolExecution(t *testing.T) {
	stubServers(t, map[string]*mcp.Server{"math": mathServer()})
	reg, err := Connect(context.Background(), []ProviderConfig{{Name: "math"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	_, err = reg.Invoke(context.Background(), "remainder", map[string]any{"a": 7, "b": 0})
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonToolExecution))
	assert.Contains(t, err.Error(), "ERR_DIVISION_BY_ZERO")
}

func TestRegistry_CloseIdempotent(t *testing.T) {
	stubServers(t, map[string]*mcp.Server{"math": mathServer()})
	reg, err := Connect(context.Background(), []ProviderConfig{{Name: "math"}})
	require.NoError(t, err)
	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close())
}

func TestSerializeResult(t *testing.T) {
	assert.Equal(t, "", SerializeResult(nil))
	assert.Equal(t, "a\nb", SerializeResult(&mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "a"}, &mcp.TextContent{Text: "b"}},
	}))
	assert.JSONEq(t, `{"result":12}`, SerializeResult(&mcp.CallToolResult{
		StructuredContent: map[string]any{"result": 12},
	}))
}
