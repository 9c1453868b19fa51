package heraldtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spilno-me/herald/internal/journal"
	"github.com/mark3labs/mcp-go/mcp"
)

// HistoryTool handles the herald_history MCP tool: browse the local
// journal of past transmissions.
type HistoryTool struct {
	journal *journal.Store
}

// NewHistoryTool creates a HistoryTool. The journal may be nil when the
// local database could not be opened.
func NewHistoryTool(jrnl *journal.Store) *HistoryTool {
	return &HistoryTool{journal: jrnl}
}

// Definition returns the MCP tool definition for herald_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("herald_history",
		mcp.WithDescription(
			"Browse the local journal of insights and reflections herald has already transmitted. "+
				"Works offline; only sanitized content is ever journaled.",
		),
		mcp.WithString("query",
			mcp.Description("Filter entries whose content or topic contains this text"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return"),
		),
	)
}

// Handle processes the herald_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.journal == nil {
		return mcp.NewToolResultError("local journal is disabled (database unavailable)"), nil
	}

	query := req.GetString("query", "")
	limit := intArg(req, "limit", 0)

	var (
		entries []journal.Entry
		err     error
	)
	if query == "" {
		entries, err = t.journal.Recent(limit)
	} else {
		entries, err = t.journal.Search(query, limit)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("journal lookup failed: %v", err)), nil
	}
	if len(entries) == 0 {
		if query != "" {
			return mcp.NewToolResultText(fmt.Sprintf("No journaled transmissions match %q.", query)), nil
		}
		return mcp.NewToolResultText("Nothing journaled yet — nothing has been transmitted."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Journaled transmissions (%d):\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, e.Kind, e.Content)
		if e.Topic != "" {
			fmt.Fprintf(&b, "   topic: %s\n", e.Topic)
		}
		fmt.Fprintf(&b, "   %s/%s, class %s, sent %s", e.Org, e.Project, e.DataClass, e.LastSentAt)
		if e.DuplicateCount > 1 {
			fmt.Fprintf(&b, " (%d times)", e.DuplicateCount)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
