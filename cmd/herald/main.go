// Herald: local-first pattern memory MCP server
//
// A universal MCP server that integrates with any AI coding tool
// (Claude Code, OpenCode, Gemini CLI, Codex, Cursor, VS Code Copilot)
// to share engineering insights with a pattern service — classified and
// redacted locally, buffered offline, recalled across user, project,
// and org scopes.
//
// Usage:
//
//	herald serve    # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Spilno-me/herald/internal/config"
	"github.com/Spilno-me/herald/internal/logging"
	heraldserver "github.com/Spilno-me/herald/internal/server"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("herald v%s\n", heraldserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	// Local .env, if present, feeds the HERALD_* overrides.
	_ = godotenv.Load()

	cfg := config.Load("")
	log, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	s, cleanup, err := heraldserver.New(workDir, cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Flush logs on interrupt; the stdio server itself exits when the
	// client closes the pipe.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", zap.String("signal", sig.String()))
		cleanup()
		_ = log.Sync()
		os.Exit(0)
	}()

	log.Info("herald starting",
		zap.String("version", heraldserver.Version),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("work_dir", workDir))

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Herald v%s — local-first pattern memory MCP server

Usage:
  herald serve    Start the MCP server (stdio transport)

Configuration:
  ~/.herald/config.yaml, overridden by HERALD_* environment variables
  (HERALD_ENDPOINT, HERALD_TIMEOUT_SECONDS, HERALD_STRICT_VERIFY,
  HERALD_DATA_DIR, HERALD_DEBUG).

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "herald": {
        "command": "herald",
        "args": ["serve"]
      }
    }
  }

Learn more: https://github.com/Spilno-me/herald
`, heraldserver.Version)
}
