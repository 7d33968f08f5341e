package bridge

import (
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// normalizeResult converts a remote call's content parts into a single value.
//
// Textual parts are concatenated in order, joined with newlines when there is
// more than one. Zero parts normalize to nil, an explicit no-value marker
// distinct from the empty string. The combined text is returned as a decoded
// JSON value when it parses as one, and as the raw string otherwise.
func normalizeResult(res *mcp.CallToolResult) any {
	var texts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	combined := texts[0]
	if len(texts) > 1 {
		combined = strings.Join(texts, "\n")
	}
	return parseOrRaw(combined)
}

// parseOrRaw decodes s as JSON when possible, otherwise returns it verbatim.
func parseOrRaw(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// resultText flattens a result's textual parts for use in error messages.
func resultText(res *mcp.CallToolResult) string {
	var texts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}
