// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools that depend on abstractions. No business
// logic lives here — only wiring.
package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Spilno-me/herald/internal/buffer"
	"github.com/Spilno-me/herald/internal/config"
	"github.com/Spilno-me/herald/internal/heraldtools"
	"github.com/Spilno-me/herald/internal/journal"
	"github.com/Spilno-me/herald/internal/remote"
	"github.com/Spilno-me/herald/internal/trust"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with every herald tool
// registered. This is the single place where all dependencies are
// resolved.
//
// The returned cleanup function closes the journal's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even when journal init failed.
func New(workDir string, cfg config.Config, log *zap.Logger) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	client := remote.NewHTTPClient(cfg.Endpoint, cfg.Timeout(), Version)
	resolver := trust.NewResolver(workDir, log)
	buf := buffer.NewStore(filepath.Join(cfg.DataDir, "buffer"), log)

	// The journal is an independent subsystem: if it fails to open,
	// submissions and recalls keep working and only local history is
	// lost. Tools take a nil store and degrade per call.
	cleanup := noop
	jrnl, jrnlErr := journal.New(journal.Config{
		DataDir:          cfg.DataDir,
		MaxSearchResults: cfg.QueryLimit,
	})
	if jrnlErr != nil {
		log.Warn("journal disabled", zap.Error(jrnlErr))
		jrnl = nil
	} else {
		cleanup = func() {
			if err := jrnl.Close(); err != nil {
				log.Warn("journal close", zap.Error(err))
			}
		}
	}

	// Best-effort identity verification in the background: the server is
	// usable immediately with the locally derived trust, and an upgrade
	// lands on the resolver's cache when the service answers.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout()+time.Second)
		defer cancel()
		tag := resolver.Verify(ctx, client, cfg.StrictVerify)
		log.Debug("startup identity",
			zap.String("org", tag.Org), zap.String("project", tag.Project),
			zap.String("source", string(tag.Source)), zap.String("trust", string(tag.TrustLevel)))
	}()

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"herald",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	saveTool := heraldtools.NewSaveTool(resolver, client, buf, jrnl, log)
	s.AddTool(saveTool.Definition(), saveTool.Handle)

	reflectTool := heraldtools.NewReflectTool(resolver, client, buf, jrnl, log)
	s.AddTool(reflectTool.Definition(), reflectTool.Handle)

	recallTool := heraldtools.NewRecallTool(resolver, client, cfg.QueryLimit, log)
	s.AddTool(recallTool.Definition(), recallTool.Handle)

	previewTool := heraldtools.NewPreviewTool()
	s.AddTool(previewTool.Definition(), previewTool.Handle)

	syncTool := heraldtools.NewSyncTool(resolver, client, buf)
	s.AddTool(syncTool.Definition(), syncTool.Handle)

	statusTool := heraldtools.NewStatusTool(resolver, buf, jrnl)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	contextTool := heraldtools.NewContextTool(resolver, client, cfg.StrictVerify)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	historyTool := heraldtools.NewHistoryTool(jrnl)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	return s, cleanup, nil
}

// noop is the default cleanup when the journal never opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use herald effectively.
func serverInstructions() string {
	return `You have access to herald, a local-first pattern memory client.

Herald shares engineering insights and session reflections with a shared
pattern service, and recalls what your user, project, and org have
already learned. Everything is classified and redacted locally before it
leaves the machine, and nothing is lost when the service is down.

## When to use herald

- herald_save: after a decision, fix, or discovery worth keeping. One
  short insight per call.
- herald_reflect: at the end of a working session — what it covered, how
  it went, and the one insight worth keeping.
- herald_recall: at the start of a session, or before a decision, to see
  what patterns and antipatterns already apply here.
- herald_preview: when unsure whether a text would be redacted or
  blocked. Nothing is transmitted.
- herald_sync: when a previous save reported buffering, or after
  connectivity returns.
- herald_status / herald_context / herald_history: to inspect herald's
  state, identity, and past transmissions.

## Important rules

- Never rephrase secrets to get past the classifier. A blocked
  submission means the content must change, not the wording.
- A "buffered locally" response is a success: the content is safe and
  will be delivered by herald_sync. Do not resubmit it.
- Insights should be general lessons ("retry queues need jitter"), not
  project gossip or personal information.
- Recall before you decide: inherited antipatterns exist because someone
  already paid for the lesson.`
}
