package heraldtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spilno-me/herald/internal/remote"
	"github.com/Spilno-me/herald/internal/trust"
	"github.com/mark3labs/mcp-go/mcp"
)

// ContextTool handles the herald_context MCP tool: show, refresh, and
// optionally verify the resolved identity tag.
type ContextTool struct {
	resolver *trust.Resolver
	client   remote.Client
	strict   bool
}

// NewContextTool creates a ContextTool.
func NewContextTool(resolver *trust.Resolver, client remote.Client, strict bool) *ContextTool {
	return &ContextTool{resolver: resolver, client: client, strict: strict}
}

// Definition returns the MCP tool definition for herald_context.
func (t *ContextTool) Definition() mcp.Tool {
	return mcp.NewTool("herald_context",
		mcp.WithDescription(
			"Show how herald resolved the current org/project/user identity and its trust level. "+
				"Use refresh to re-derive from scratch, verify to confirm the identity with the pattern service.",
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Discard the cached identity and re-derive it"),
		),
		mcp.WithBoolean("verify",
			mcp.Description("Confirm the derived identity against the pattern service registry"),
		),
	)
}

// Handle processes the herald_context tool call.
func (t *ContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refresh := boolArg(req, "refresh", false)
	verify := boolArg(req, "verify", false)

	tag := t.resolver.Resolve(refresh)
	verified := false
	if verify {
		before := tag
		tag = t.resolver.Verify(ctx, t.client, t.strict)
		verified = tag.Source == trust.SourceVerified && before.Source != trust.SourceVerified
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Org: %s\nProject: %s\nUser: %s\n", tag.Org, tag.Project, tag.User)
	fmt.Fprintf(&b, "Trust: %s (source: %s)\n", tag.TrustLevel, tag.Source)
	fmt.Fprintf(&b, "Propagates beyond user scope: %v\n", tag.Propagates)
	if tag.RemoteID != "" {
		fmt.Fprintf(&b, "Remote ID: %s\n", tag.RemoteID)
	}
	switch {
	case verified:
		b.WriteString("\nIdentity confirmed by the pattern service and persisted.\n")
	case verify && tag.RemoteID == "":
		b.WriteString("\nNo remote-derived identity to verify; derive from a git remote first.\n")
	case verify:
		b.WriteString("\nVerification did not upgrade trust; locally derived values kept.\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
