// Package metrics derives privacy-safe counts from prompts and tool payloads.
package metrics

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Features holds local text features of a user prompt. Only the counts leave
// the process; the prompt itself is never recorded.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

func CountFeatures(s string) Features {
	return Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
		Lines: countLines(s),
	}
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}

// ArgsSize is the byte length of the JSON encoding of tool arguments.
// Nil or empty arguments count as "{}". Unencodable arguments count as 0.
func ArgsSize(args map[string]any) int {
	if len(args) == 0 {
		return 2
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}
