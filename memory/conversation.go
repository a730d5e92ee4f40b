package memory

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind separates normal content from turn failures surfaced to the user.
type Kind string

const (
	KindText  Kind = "text"
	KindError Kind = "error"
)

// ErrorPrefix marks assistant messages that report a failed turn.
const ErrorPrefix = "❌ Error: "

// ToolCallRequest is a single tool invocation requested by the model.
type ToolCallRequest struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolCallResult records an executed tool call. Args are echoed verbatim from the request.
type ToolCallResult struct {
	ID     string         `json:"id"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result string         `json:"result"`
}

// Message is one entry of the conversation. Treat it as immutable once appended.
type Message struct {
	Role        Role             `json:"role"`
	Kind        Kind             `json:"kind"`
	Text        string           `json:"text"`
	ToolResults []ToolCallResult `json:"tool_results,omitempty"`
	Detail      string           `json:"detail,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Kind: KindText, Text: text, CreatedAt: time.Now().UTC()}
}

func NewAssistantMessage(text string, results []ToolCallResult) Message {
	return Message{Role: RoleAssistant, Kind: KindText, Text: text, ToolResults: results, CreatedAt: time.Now().UTC()}
}

// NewErrorMessage builds the assistant reply for a failed turn.
// Text carries the user-visible prefix; detail keeps the raw failure for diagnosis.
func NewErrorMessage(summary, detail string) Message {
	return Message{Role: RoleAssistant, Kind: KindError, Text: ErrorPrefix + summary, Detail: detail, CreatedAt: time.Now().UTC()}
}

func (m Message) IsError() bool { return m.Kind == KindError }

// History is the ordered conversation of one session.
type History struct {
	mu   sync.RWMutex
	msgs []Message
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msgs...)
}

// Messages returns a copy of the history, oldest first.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.msgs)
}

// Clear drops every message at once.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = nil
}

// WriteTranscript exports msgs as indented JSON.
func WriteTranscript(path string, msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
