package heraldtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spilno-me/herald/internal/cascade"
	"github.com/Spilno-me/herald/internal/remote"
	"github.com/Spilno-me/herald/internal/trust"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// RecallTool handles the herald_recall MCP tool: the scope-cascade query
// over user, project, and org patterns.
type RecallTool struct {
	resolver   *trust.Resolver
	client     remote.Client
	queryLimit int
	log        *zap.Logger
}

// NewRecallTool creates a RecallTool.
func NewRecallTool(resolver *trust.Resolver, client remote.Client, queryLimit int, log *zap.Logger) *RecallTool {
	return &RecallTool{resolver: resolver, client: client, queryLimit: queryLimit, log: log}
}

// Definition returns the MCP tool definition for herald_recall.
func (t *RecallTool) Definition() mcp.Tool {
	return mcp.NewTool("herald_recall",
		mcp.WithDescription(
			"Recall learned patterns and antipatterns inherited from your user, project, and org scopes. "+
				"Results are merged with the most specific scope winning; unreachable scopes are skipped, "+
				"so partial results still come back.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries per scope (default from config)"),
		),
	)
}

// Handle processes the herald_recall tool call.
func (t *RecallTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", t.queryLimit)
	tag := t.resolver.Resolve(false)

	merged := cascade.QueryPatterns(ctx, t.client, tag, limit, t.log)
	if len(merged.Patterns) == 0 && len(merged.Antipatterns) == 0 {
		if len(merged.FailedScopes) == 3 {
			return mcp.NewToolResultText("Pattern service unreachable at every scope — no patterns available right now."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("No patterns recorded yet for %s/%s.", tag.Org, tag.Project)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Patterns for %s/%s (as %s):\n\n", tag.Org, tag.Project, tag.User)
	if len(merged.Patterns) > 0 {
		fmt.Fprintf(&b, "Patterns (%d):\n", len(merged.Patterns))
		formatEntries(&b, merged.Patterns)
	}
	if len(merged.Antipatterns) > 0 {
		fmt.Fprintf(&b, "\nAntipatterns (%d):\n", len(merged.Antipatterns))
		formatEntries(&b, merged.Antipatterns)
	}
	if len(merged.FailedScopes) > 0 {
		scopes := make([]string, len(merged.FailedScopes))
		for i, s := range merged.FailedScopes {
			scopes[i] = string(s)
		}
		fmt.Fprintf(&b, "\nSkipped scopes (unreachable): %s\n", strings.Join(scopes, ", "))
	}
	return mcp.NewToolResultText(b.String()), nil
}
