// Package logging builds the process logger.
//
// Herald serves MCP over stdio, so stdout belongs to the protocol: every
// log line goes to stderr. Components receive a *zap.Logger from the
// composition root rather than using a package-level logger.
package logging

import (
	"go.uber.org/zap"
)

// New creates the process logger. Debug mode lowers the level and keeps
// caller annotations; production mode logs structured JSON at info.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	}
	return cfg.Build()
}
