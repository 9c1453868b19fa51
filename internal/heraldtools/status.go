package heraldtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spilno-me/herald/internal/buffer"
	"github.com/Spilno-me/herald/internal/journal"
	"github.com/Spilno-me/herald/internal/trust"
	"github.com/mark3labs/mcp-go/mcp"
)

// StatusTool handles the herald_status MCP tool: current identity,
// pending buffer, and journal totals in one view.
type StatusTool struct {
	resolver *trust.Resolver
	buf      *buffer.Store
	journal  *journal.Store
}

// NewStatusTool creates a StatusTool. The journal may be nil.
func NewStatusTool(resolver *trust.Resolver, buf *buffer.Store, jrnl *journal.Store) *StatusTool {
	return &StatusTool{resolver: resolver, buf: buf, journal: jrnl}
}

// Definition returns the MCP tool definition for herald_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("herald_status",
		mcp.WithDescription(
			"Show herald's current state: resolved identity and trust, buffered items awaiting sync, "+
				"and how much has been shared so far.",
		),
	)
}

// Handle processes the herald_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := t.resolver.Resolve(false)

	var b strings.Builder
	fmt.Fprintf(&b, "Identity: %s/%s as %s\n", tag.Org, tag.Project, tag.User)
	fmt.Fprintf(&b, "Trust: %s (source: %s, propagates: %v)\n", tag.TrustLevel, tag.Source, tag.Propagates)

	pending := t.buf.Peek(tag.Org, tag.Project, tag.User)
	if len(pending) == 0 {
		b.WriteString("Buffer: empty\n")
	} else {
		p := t.buf.DryRun(tag.Org, tag.Project, tag.User)
		fmt.Fprintf(&b, "Buffer: %d pending (%d insights, %d reflections), oldest from %s\n",
			len(pending), p.Insights, p.Reflections,
			pending[0].BufferedAt.Format("2006-01-02 15:04 MST"))
	}

	// Items buffered under another identity (a different checkout or org)
	// are only drained when herald runs as that identity again; surface
	// them so they are not forgotten.
	current := buffer.IdentityKey(tag.Org, tag.Project, tag.User)
	var others []string
	for _, id := range t.buf.Identities() {
		if id != current {
			others = append(others, id)
		}
	}
	if len(others) > 0 {
		fmt.Fprintf(&b, "Other identities with pending items: %s\n", strings.Join(others, ", "))
	}

	if t.journal != nil {
		if st, err := t.journal.Stats(); err == nil {
			fmt.Fprintf(&b, "Journal: %d entries, %d transmissions\n", st.Entries, st.Transmissions)
		}
	} else {
		b.WriteString("Journal: disabled\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
