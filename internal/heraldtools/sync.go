package heraldtools

import (
	"context"
	"fmt"

	"github.com/Spilno-me/herald/internal/buffer"
	"github.com/Spilno-me/herald/internal/remote"
	"github.com/Spilno-me/herald/internal/trust"
	"github.com/mark3labs/mcp-go/mcp"
)

// SyncTool handles the herald_sync MCP tool: drain the offline buffer
// toward the pattern service.
type SyncTool struct {
	resolver *trust.Resolver
	client   remote.Client
	buf      *buffer.Store
}

// NewSyncTool creates a SyncTool.
func NewSyncTool(resolver *trust.Resolver, client remote.Client, buf *buffer.Store) *SyncTool {
	return &SyncTool{resolver: resolver, client: client, buf: buf}
}

// Definition returns the MCP tool definition for herald_sync.
func (t *SyncTool) Definition() mcp.Tool {
	return mcp.NewTool("herald_sync",
		mcp.WithDescription(
			"Resync buffered insights and reflections to the pattern service. Each pending item gets one "+
				"fresh delivery attempt; whatever still fails stays buffered for next time.",
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Report what would be synced without any network calls"),
		),
	)
}

// Handle processes the herald_sync tool call.
func (t *SyncTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := t.resolver.Resolve(false)

	if boolArg(req, "dry_run", false) {
		p := t.buf.DryRun(tag.Org, tag.Project, tag.User)
		if len(p.Items) == 0 {
			return mcp.NewToolResultText("Buffer empty — nothing to sync."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"Would sync %d items (%d insights, %d reflections). No network calls made.",
			len(p.Items), p.Insights, p.Reflections)), nil
	}

	pending := t.buf.Peek(tag.Org, tag.Project, tag.User)
	if len(pending) == 0 {
		return mcp.NewToolResultText("Buffer empty — nothing to sync."), nil
	}

	res, err := t.buf.Drain(ctx, t.client, tag.Org, tag.Project, tag.User)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("drain failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatDrain(res)), nil
}

func formatDrain(res *buffer.DrainResult) string {
	switch {
	case len(res.Failed) == 0:
		return fmt.Sprintf("Synced %d items — buffer is empty.", len(res.Synced))
	case len(res.Synced) == 0:
		return fmt.Sprintf("Pattern service still unavailable — %d items remain buffered.", len(res.Failed))
	default:
		return fmt.Sprintf("Synced %d items; %d failed and remain buffered.", len(res.Synced), len(res.Failed))
	}
}
