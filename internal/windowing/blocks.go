package windowing

import (
	"log/slog"

	"github.com/petasbytes/toolchat/internal/llm"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
// Kind indicates whether it is a singleton or a validated pair.
type Group struct {
	Kind  GroupKind
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupMessages groups messages into atomic units that keep tool calls with their results.
// Invariants:
//   - A pair is exactly two adjacent messages: assistant(tool calls) then tool(results).
//   - Completeness: the result IDs equal the call IDs, no missing and no extra results.
//   - Everything else is a singleton.
func GroupMessages(msgs []llm.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		m := msgs[i]
		if m.Role == llm.RoleAssistant && len(m.ToolCalls) > 0 {
			if i+1 < len(msgs) && msgs[i+1].Role == llm.RoleTool {
				calls := callIDs(m)
				results := resultIDs(msgs[i+1])
				if sameIDs(calls, results) {
					groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
					i += 2
					continue
				}
				slog.Debug("windowing: exclude pair", "reason", "ids_mismatch", "idx", i)
			} else {
				slog.Debug("windowing: exclude pair", "reason", "not_followed_by_results", "idx", i)
			}
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

func callIDs(m llm.Message) map[string]struct{} {
	ids := make(map[string]struct{}, len(m.ToolCalls))
	for _, c := range m.ToolCalls {
		if c.ID != "" {
			ids[c.ID] = struct{}{}
		}
	}
	return ids
}

func resultIDs(m llm.Message) map[string]struct{} {
	ids := make(map[string]struct{}, len(m.ToolResults))
	for _, r := range m.ToolResults {
		if r.ID != "" {
			ids[r.ID] = struct{}{}
		}
	}
	return ids
}

func sameIDs(a, b map[string]struct{}) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
