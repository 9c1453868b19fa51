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

// SaveTool handles the herald_save MCP tool: classify an insight, submit
// it, and fall back to the offline buffer when the service is away.
type SaveTool struct {
	resolver *trust.Resolver
	client   remote.Client
	buf      *buffer.Store
	journal  *journal.Store
	log      *zap.Logger
}

// NewSaveTool creates a SaveTool. The journal may be nil; history is then
// skipped.
func NewSaveTool(resolver *trust.Resolver, client remote.Client, buf *buffer.Store, jrnl *journal.Store, log *zap.Logger) *SaveTool {
	return &SaveTool{resolver: resolver, client: client, buf: buf, journal: jrnl, log: log}
}

// Definition returns the MCP tool definition for herald_save.
func (t *SaveTool) Definition() mcp.Tool {
	return mcp.NewTool("herald_save",
		mcp.WithDescription(
			"Share a short insight with the pattern service. Content is classified and redacted first; "+
				"secrets block the whole submission. If the service is unreachable the insight is buffered "+
				"locally and synced later — it is never lost.",
		),
		mcp.WithString("insight",
			mcp.Required(),
			mcp.Description("The insight text (e.g. 'retry queues need jitter or they thundering-herd')"),
		),
		mcp.WithString("topic",
			mcp.Description("Optional topic label (e.g. 'testing', 'migrations')"),
		),
		mcp.WithString("scope",
			mcp.Description("Target scope: user (default), project, or org. Low-trust identities are limited to user."),
		),
	)
}

// Handle processes the herald_save tool call.
func (t *SaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("insight", "")
	if text == "" {
		return mcp.NewToolResultError("'insight' is required"), nil
	}
	topic := req.GetString("topic", "")
	toScope := req.GetString("scope", "user")
	switch toScope {
	case "user", "project", "org":
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown scope %q: use user, project, or org", toScope)), nil
	}

	res := classify.Sanitize(text)
	if res.Blocked {
		// Policy failure: never transmitted, never buffered. Retry means
		// editing the input.
		return mcp.NewToolResultError(fmt.Sprintf(
			"submission blocked: %s. Nothing was transmitted or buffered; edit the insight and retry.",
			res.BlockReason)), nil
	}

	tag := t.resolver.Resolve(false)
	if !tag.Propagates && toScope != "user" {
		t.log.Debug("narrowing target scope for low-trust identity",
			zap.String("requested", toScope), zap.String("source", string(tag.Source)))
		toScope = "user"
	}

	sub := remote.InsightSubmission{
		Insight:   res.SanitizedText,
		Topic:     topic,
		ToScope:   toScope,
		FromScope: "user",
	}

	if err := t.client.SubmitInsight(ctx, sub); err != nil {
		return t.bufferInsight(tag, sub, err)
	}

	t.recordJournal(tag, sub, res)
	msg := fmt.Sprintf("Insight shared to %s scope (classification: %s", toScope, res.DataClass)
	if res.RedactionCount > 0 {
		msg += fmt.Sprintf(", %d redactions", res.RedactionCount)
	}
	return mcp.NewToolResultText(msg + ")"), nil
}

// bufferInsight handles both transient failures and remote rejections the
// same way: keep the data, answer success-shaped.
func (t *SaveTool) bufferInsight(tag trust.Tag, sub remote.InsightSubmission, cause error) (*mcp.CallToolResult, error) {
	item := buffer.Item{
		Kind: buffer.KindInsight,
		Org:  tag.Org, Project: tag.Project, User: tag.User,
		Insight: &sub,
	}
	if err := t.buf.Enqueue(item); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"pattern service unavailable (%v) and buffering failed: %v", cause, err)), nil
	}
	pending := len(t.buf.Peek(tag.Org, tag.Project, tag.User))
	return mcp.NewToolResultText(fmt.Sprintf(
		"Pattern service unavailable — insight buffered locally (%d pending). Run herald_sync to retry.",
		pending)), nil
}

func (t *SaveTool) recordJournal(tag trust.Tag, sub remote.InsightSubmission, res classify.Result) {
	if t.journal == nil {
		return
	}
	_, _, err := t.journal.Record(journal.RecordParams{
		Kind:      string(buffer.KindInsight),
		Content:   sub.Insight,
		Topic:     sub.Topic,
		Scope:     sub.ToScope,
		DataClass: res.DataClass.String(),
		Org:       tag.Org,
		Project:   tag.Project,
		Account:   tag.User,
	})
	if err != nil {
		t.log.Warn("journal record failed", zap.Error(err))
	}
}
