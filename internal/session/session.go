// Package session owns one conversation: its history, its lazily connected
// tool registry and the orchestrator that answers each prompt.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/petasbytes/toolchat/internal/chat"
	"github.com/petasbytes/toolchat/internal/connector"
	"github.com/petasbytes/toolchat/internal/errorsx"
	"github.com/petasbytes/toolchat/internal/telemetry"
	"github.com/petasbytes/toolchat/memory"
)

// ErrEmptyPrompt is returned by Send for blank input; nothing is recorded.
var ErrEmptyPrompt = errors.New("empty prompt")

// ConnectFunc builds the tool registry. It is called on first use and again
// after a failed attempt.
type ConnectFunc func(ctx context.Context) (*connector.Registry, error)

// Status describes the tool side of the session.
type Status struct {
	// Pending is true until the first message triggers the connection.
	Pending   bool                       `json:"pending"`
	Connected bool                       `json:"connected"`
	ToolCount int                        `json:"tool_count"`
	Tools     []connector.Descriptor     `json:"tools"`
	Providers []connector.ProviderStatus `json:"providers"`
	Error     string                     `json:"error,omitempty"`
}

type Session struct {
	orch    *chat.Orchestrator
	connect ConnectFunc
	history *memory.History
	log     *slog.Logger

	turnMu sync.Mutex

	regMu   sync.Mutex
	reg     *connector.Registry
	lastErr error
	closed  bool
}

func New(orch *chat.Orchestrator, connect ConnectFunc, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{orch: orch, connect: connect, history: memory.NewHistory(), log: log}
}

// Send runs one turn and returns the assistant message appended for it.
// Turn failures do not return an error: they become an error-kind message.
func (s *Session) Send(ctx context.Context, text string) (memory.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return memory.Message{}, ErrEmptyPrompt
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	ctx, turnID := telemetry.EnsureTurnID(ctx)
	prior := s.history.Messages()
	s.history.Append(memory.NewUserMessage(text))

	var reply memory.Message
	reg, err := s.Registry(ctx)
	if err == nil {
		var r chat.Reply
		r, err = s.orch.Respond(ctx, text, prior, reg)
		if err == nil {
			reply = memory.NewAssistantMessage(r.Text, r.ToolCalls)
		}
	} else {
		telemetry.TurnFailed(ctx, string(errorsx.Reason(err)))
	}
	if err != nil {
		reason := errorsx.Reason(err)
		s.log.Error("turn failed", "turn_id", turnID, "reason", reason, "err", err)
		reply = memory.NewErrorMessage(err.Error(), errorsx.Detail(err, turnID))
	}
	s.history.Append(reply)
	return reply, nil
}

// Registry returns the connected registry, connecting if needed.
func (s *Session) Registry(ctx context.Context) (*connector.Registry, error) {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	if s.closed {
		return nil, errors.New("session closed")
	}
	if s.reg != nil {
		return s.reg, nil
	}
	if s.connect == nil {
		s.reg = connector.NewRegistry()
		return s.reg, nil
	}
	reg, err := s.connect(ctx)
	if err != nil {
		s.lastErr = err
		return nil, errorsx.Wrap(err, errorsx.ReasonProviderUnreachable)
	}
	s.reg, s.lastErr = reg, nil
	s.log.Info("tools connected", "tools", reg.Len(), "providers", len(reg.Providers()))
	return reg, nil
}

// Status reports tools and providers without connecting; providers are
// contacted on the first Send.
func (s *Session) Status() Status {
	s.regMu.Lock()
	reg, lastErr, closed := s.reg, s.lastErr, s.closed
	s.regMu.Unlock()
	switch {
	case closed:
		return Status{Error: "session closed"}
	case reg == nil && lastErr != nil:
		return Status{Error: lastErr.Error()}
	case reg == nil:
		return Status{Pending: true}
	}
	return Status{
		Connected: true,
		ToolCount: reg.Len(),
		Tools:     reg.Descriptors(),
		Providers: reg.Providers(),
	}
}

func (s *Session) History() []memory.Message { return s.history.Messages() }

// Clear drops the conversation; the tool connection is kept.
func (s *Session) Clear() {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	s.history.Clear()
}

// ExportTranscript writes the conversation as indented JSON.
func (s *Session) ExportTranscript(path string) error {
	return memory.WriteTranscript(path, s.history.Messages())
}

// Close releases provider sessions. It is safe to call more than once.
func (s *Session) Close() error {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	s.closed = true
	if s.reg == nil {
		return nil
	}
	return s.reg.Close()
}
