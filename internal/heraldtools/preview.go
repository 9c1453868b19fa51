package heraldtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spilno-me/herald/internal/classify"
	"github.com/mark3labs/mcp-go/mcp"
)

// PreviewTool handles the herald_preview MCP tool: a dry-run
// classification that commits to nothing.
type PreviewTool struct{}

// NewPreviewTool creates a PreviewTool.
func NewPreviewTool() *PreviewTool {
	return &PreviewTool{}
}

// Definition returns the MCP tool definition for herald_preview.
func (t *PreviewTool) Definition() mcp.Tool {
	return mcp.NewTool("herald_preview",
		mcp.WithDescription(
			"Preview how text would be classified and redacted before sharing it. "+
				"Nothing is transmitted, buffered, or journaled.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text to classify"),
		),
	)
}

// Handle processes the herald_preview tool call.
func (t *PreviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	p := classify.Preview(text)
	var b strings.Builder
	fmt.Fprintf(&b, "Classification: %s\n", p.Classification)
	fmt.Fprintf(&b, "Detected: %s\n", typeList(p.DetectedTypes))
	switch {
	case p.WouldBlock:
		b.WriteString("Verdict: BLOCKED — this text would not be transmitted in any form\n")
	case p.WouldSanitize:
		fmt.Fprintf(&b, "Verdict: would transmit with redactions\n\nSanitized:\n%s\n", p.Sanitized)
	default:
		b.WriteString("Verdict: would transmit unchanged\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
