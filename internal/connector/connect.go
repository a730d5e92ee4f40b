package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/petasbytes/toolchat/internal/errorsx"
)

// FailurePolicy decides what Connect does when a provider cannot be reached.
type FailurePolicy string

const (
	// FailAbort closes every session opened so far and returns the error.
	FailAbort FailurePolicy = "abort"
	// FailSkip logs the failure, records it in ProviderStatus and continues.
	FailSkip FailurePolicy = "skip"
)

// ProviderStatus is the connect outcome of one provider.
type ProviderStatus struct {
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Connected bool   `json:"connected"`
	Tools     int    `json:"tools"`
	Error     string `json:"error,omitempty"`
}

type options struct {
	policy FailurePolicy
	log    *slog.Logger
	impl   *mcp.Implementation
}

type Option func(*options)

func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) {
		if p != "" {
			o.policy = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClientInfo sets the implementation name/version announced to servers.
func WithClientInfo(name, version string) Option {
	return func(o *options) { o.impl = &mcp.Implementation{Name: name, Version: version} }
}

// Connect opens a session with every provider, in order, and merges their
// tools into one registry keyed by name.
func Connect(ctx context.Context, providers []ProviderConfig, opts ...Option) (*Registry, error) {
	o := options{
		policy: FailAbort,
		log:    slog.Default(),
		impl:   &mcp.Implementation{Name: "toolchat", Version: "dev"},
	}
	for _, opt := range opts {
		opt(&o)
	}

	reg := NewRegistry()
	reg.log = o.log
	client := mcp.NewClient(o.impl, nil)

	for i, pc := range providers {
		if strings.TrimSpace(pc.Name) == "" {
			pc.Name = fmt.Sprintf("provider-%d", i)
		}
		status := ProviderStatus{Name: pc.Name, Transport: normalizeTransport(pc.Transport)}

		n, err := connectOne(ctx, client, reg, pc)
		if err != nil {
			err = errorsx.Errorf(errorsx.ReasonProviderUnreachable, "provider %q unreachable: %w", pc.Name, err)
			if o.policy != FailSkip {
				return nil, errors.Join(err, reg.Close())
			}
			o.log.Warn("skipping unreachable provider", "provider", pc.Name, "error", err)
			status.Error = err.Error()
			reg.addStatus(status)
			continue
		}
		status.Connected = true
		status.Tools = n
		reg.addStatus(status)
		o.log.Info("provider connected", "provider", pc.Name, "transport", status.Transport, "tools", n)
	}
	return reg, nil
}

// connectOne registers pc's tools and returns how many it exposed.
func connectOne(ctx context.Context, client *mcp.Client, reg *Registry, pc ProviderConfig) (int, error) {
	transport, err := transportBuilder(ctx, pc)
	if err != nil {
		return 0, fmt.Errorf("build transport: %w", err)
	}
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}

	var listed []*mcp.Tool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return 0, fmt.Errorf("list tools: %w", err)
		}
		listed = append(listed, tool)
	}
	reg.addCloser(session)

	for _, tool := range listed {
		desc := toDescriptor(tool, pc.Name)
		t, err := NewTool(desc, sessionHandler(session, tool.Name))
		if err != nil {
			reg.log.Warn("tool registered without argument validation", "provider", pc.Name, "tool", tool.Name, "error", err)
		}
		reg.Register(t)
	}
	return len(listed), nil
}

func sessionHandler(session *mcp.ClientSession, name string) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		if args == nil {
			args = map[string]any{}
		}
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
		if err != nil {
			return "", err
		}
		out := SerializeResult(res)
		if res.IsError {
			return "", fmt.Errorf("tool reported error: %s", out)
		}
		return out, nil
	}
}

func toDescriptor(tool *mcp.Tool, provider string) Descriptor {
	if tool == nil {
		return Descriptor{Provider: provider}
	}
	schema, _ := schemaMap(tool.InputSchema)
	return Descriptor{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: schema,
		Provider:    provider,
	}
}

// schemaMap normalizes whatever the SDK decoded into a plain JSON object.
func schemaMap(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
