// Package heraldtools provides the MCP tool handlers for herald.
//
// Each tool follows the same pattern:
// - A struct with dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Domain failures (blocked content, unreachable service) are reported in
// the tool result, never as a Go error: the transport layer only sees
// errors for protocol-level problems.
package heraldtools

import (
	"fmt"
	"strings"

	"github.com/Spilno-me/herald/internal/cascade"
	"github.com/Spilno-me/herald/internal/classify"
	"github.com/mark3labs/mcp-go/mcp"
)

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// typeList renders detected types as a comma-separated list.
func typeList(types []classify.SensitiveDataType) string {
	if len(types) == 0 {
		return "none"
	}
	names := make([]string, len(types))
	for i, typ := range types {
		names[i] = string(typ)
	}
	return strings.Join(names, ", ")
}

// formatEntries renders merged cascade entries as a numbered list.
func formatEntries(b *strings.Builder, entries []cascade.Entry) {
	for i, e := range entries {
		fmt.Fprintf(b, "%d. [%s] %s\n", i+1, e.Scope, e.Insight)
		if e.Reinforcement != "" {
			fmt.Fprintf(b, "   + %s\n", e.Reinforcement)
		}
		if e.Warning != "" {
			fmt.Fprintf(b, "   ! %s\n", e.Warning)
		}
	}
}
