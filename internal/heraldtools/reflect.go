package heraldtools

import (
	"context"
	"fmt"

	"github.com/Spilno-me/herald/internal/buffer"
	"github.com/Spilno-me/herald/internal/classify"
	"github.com/Spilno-me/herald/internal/journal"
	"github.com/Spilno-me/herald/internal/remote"
	"github.com/Spilno-me/herald/internal/trust"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// ReflectTool handles the herald_reflect MCP tool: an end-of-session
// reflection with the same classify-submit-or-buffer flow as herald_save.
type ReflectTool struct {
	resolver *trust.Resolver
	client   remote.Client
	buf      *buffer.Store
	journal  *journal.Store
	log      *zap.Logger
}

// NewReflectTool creates a ReflectTool. The journal may be nil.
func NewReflectTool(resolver *trust.Resolver, client remote.Client, buf *buffer.Store, jrnl *journal.Store, log *zap.Logger) *ReflectTool {
	return &ReflectTool{resolver: resolver, client: client, buf: buf, journal: jrnl, log: log}
}

// Definition returns the MCP tool definition for herald_reflect.
func (t *ReflectTool) Definition() mcp.Tool {
	return mcp.NewTool("herald_reflect",
		mcp.WithDescription(
			"Record an end-of-session reflection: what the session was about, how it felt, and the one "+
				"insight worth keeping. Both session summary and insight are classified and redacted before "+
				"anything leaves the machine.",
		),
		mcp.WithString("session",
			mcp.Required(),
			mcp.Description("Short summary of what the session covered"),
		),
		mcp.WithString("insight",
			mcp.Required(),
			mcp.Description("The one insight worth keeping from this session"),
		),
		mcp.WithString("feeling",
			mcp.Description("How the session went (e.g. 'smooth', 'frustrating')"),
		),
		mcp.WithString("method",
			mcp.Description("Optional working method used (e.g. 'tdd', 'pair')"),
		),
	)
}

// Handle processes the herald_reflect tool call.
func (t *ReflectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := req.GetString("session", "")
	insight := req.GetString("insight", "")
	if session == "" {
		return mcp.NewToolResultError("'session' is required"), nil
	}
	if insight == "" {
		return mcp.NewToolResultError("'insight' is required"), nil
	}

	sessionRes := classify.Sanitize(session)
	insightRes := classify.Sanitize(insight)
	for _, res := range []classify.Result{sessionRes, insightRes} {
		if res.Blocked {
			return mcp.NewToolResultError(fmt.Sprintf(
				"reflection blocked: %s. Nothing was transmitted or buffered; edit the text and retry.",
				res.BlockReason)), nil
		}
	}

	tag := t.resolver.Resolve(false)
	sub := remote.ReflectionSubmission{
		Session: sessionRes.SanitizedText,
		Feeling: req.GetString("feeling", ""),
		Insight: insightRes.SanitizedText,
		Method:  req.GetString("method", ""),
		Org:     tag.Org,
		Project: tag.Project,
		User:    tag.User,
	}

	if err := t.client.SubmitReflection(ctx, sub); err != nil {
		item := buffer.Item{
			Kind: buffer.KindReflection,
			Org:  tag.Org, Project: tag.Project, User: tag.User,
			Reflection: &sub,
		}
		if berr := t.buf.Enqueue(item); berr != nil {
			return mcp.NewToolResultError(fmt.Sprintf(
				"pattern service unavailable (%v) and buffering failed: %v", err, berr)), nil
		}
		pending := len(t.buf.Peek(tag.Org, tag.Project, tag.User))
		return mcp.NewToolResultText(fmt.Sprintf(
			"Pattern service unavailable — reflection buffered locally (%d pending). Run herald_sync to retry.",
			pending)), nil
	}

	if t.journal != nil {
		_, _, err := t.journal.Record(journal.RecordParams{
			Kind:      string(buffer.KindReflection),
			Content:   sub.Insight,
			DataClass: insightRes.DataClass.String(),
			Org:       tag.Org,
			Project:   tag.Project,
			Account:   tag.User,
		})
		if err != nil {
			t.log.Warn("journal record failed", zap.Error(err))
		}
	}

	redactions := sessionRes.RedactionCount + insightRes.RedactionCount
	msg := "Reflection recorded"
	if redactions > 0 {
		msg += fmt.Sprintf(" (%d redactions applied)", redactions)
	}
	return mcp.NewToolResultText(msg), nil
}
