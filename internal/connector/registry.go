package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/samber/lo"

	"github.com/petasbytes/toolchat/internal/errorsx"
)

// Descriptor is what the model sees of a tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
	Provider    string         `json:"provider"`
}

// Handler executes a tool call and returns the serialized result.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is an invocable registry entry.
type Tool struct {
	Descriptor
	handler   Handler
	validator *jsonschema.Resolved
}

// NewTool binds a descriptor to its handler. An input schema that cannot be
// resolved leaves the tool without argument validation; the error is returned
// alongside the usable tool so callers can log it.
func NewTool(desc Descriptor, h Handler) (*Tool, error) {
	t := &Tool{Descriptor: desc, handler: h}
	if len(desc.InputSchema) == 0 {
		return t, nil
	}
	resolved, err := resolveSchema(desc.InputSchema)
	if err != nil {
		return t, fmt.Errorf("tool %q: resolve input schema: %w", desc.Name, err)
	}
	t.validator = resolved
	return t, nil
}

// Call validates args against the input schema and runs the tool.
// Every failure carries errorsx.ReasonToolExecution.
func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	if t.handler == nil {
		return "", errorsx.Errorf(errorsx.ReasonToolExecution, "tool %q has no handler", t.Name)
	}
	if t.validator != nil {
		instance, err := jsonValue(args)
		if err != nil {
			return "", errorsx.Errorf(errorsx.ReasonToolExecution, "tool %q: encode arguments: %w", t.Name, err)
		}
		if err := t.validator.Validate(instance); err != nil {
			return "", errorsx.Errorf(errorsx.ReasonToolExecution, "tool %q: invalid arguments: %w", t.Name, err)
		}
	}
	out, err := t.handler(ctx, args)
	if err != nil {
		return "", errorsx.Errorf(errorsx.ReasonToolExecution, "tool %q: %w", t.Name, err)
	}
	return out, nil
}

// Registry is a flat, name-addressed collection of tools from every provider.
// The last registration for a name wins.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*Tool
	order     []string
	providers []ProviderStatus
	closers   []io.Closer
	closed    bool
	log       *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]*Tool{}, log: slog.Default()}
}

func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.tools[t.Name]; ok {
		r.log.Debug("tool shadowed", "tool", t.Name, "previous_provider", prev.Provider, "provider", t.Provider)
		r.order = lo.Without(r.order, t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Lookup is the typed name resolution; ok=false is the not-found branch.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Invoke resolves name and calls the tool.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return "", UnknownToolError(name)
	}
	return t.Call(ctx, args)
}

// Descriptors lists tools in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.order, func(name string, _ int) Descriptor {
		return r.tools[name].Descriptor
	})
}

// Names lists tool names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.tools)
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Providers reports the connect outcome of every configured provider.
func (r *Registry) Providers() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderStatus, len(r.providers))
	copy(out, r.providers)
	return out
}

// Close shuts down every provider session. Safe to call more than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Registry) addCloser(c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, c)
}

func (r *Registry) addStatus(s ProviderStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, s)
}

// UnknownToolError is returned when a tool name is absent from the registry.
func UnknownToolError(name string) error {
	return errorsx.Errorf(errorsx.ReasonUnknownTool, "unknown tool %q", name)
}

func resolveSchema(schema map[string]any) (*jsonschema.Resolved, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}

// jsonValue converts args to their plain JSON form (numbers become float64).
func jsonValue(args map[string]any) (any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
