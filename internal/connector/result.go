package connector

import (
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SerializeResult flattens an MCP call result to the string handed back to the model.
//   - text blocks are joined with newlines
//   - without text, structured content is JSON encoded
//   - other content kinds are JSON encoded as they arrive
func SerializeResult(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var texts []string
	var others []mcp.Content
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
			continue
		}
		others = append(others, c)
	}
	if len(texts) > 0 {
		return strings.Join(texts, "\n")
	}
	if res.StructuredContent != nil {
		if b, err := json.Marshal(res.StructuredContent); err == nil {
			return string(b)
		}
	}
	if len(others) > 0 {
		if b, err := json.Marshal(others); err == nil {
			return string(b)
		}
	}
	return ""
}
