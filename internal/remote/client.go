// Package remote defines the client for the pattern-memory service.
//
// The core treats the service as an opaque collaborator with four
// operations. Callers distinguish exactly three outcomes: success, a
// structured rejection (*APIError), and unreachable (ErrUnreachable).
// Timeouts are reported as unreachable — the caller cannot tell them
// apart from a network failure, and handles both by buffering.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnreachable wraps every network-level failure: refused connections,
// DNS errors, and calls that exceeded the configured timeout.
var ErrUnreachable = errors.New("pattern service unreachable")

// APIError is a structured rejection from the service (e.g. unknown
// identity, validation failure). The service answered; it said no.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("pattern service rejected request: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("pattern service rejected request: HTTP %d", e.Status)
}

// ReflectionSubmission is one end-of-session reflection. All free-text
// fields must already be sanitized by the classification engine.
type ReflectionSubmission struct {
	Session string `json:"session"`
	Feeling string `json:"feeling"`
	Insight string `json:"insight"`
	Method  string `json:"method"`
	Org     string `json:"org"`
	Project string `json:"project"`
	User    string `json:"user"`
}

// InsightSubmission is one standalone insight shared to a scope.
type InsightSubmission struct {
	Insight   string `json:"insight"`
	Topic     string `json:"topic,omitempty"`
	ToScope   string `json:"to_scope"`
	FromScope string `json:"from_scope"`
}

// Query selects reflections for one cascade level. Project and User are
// empty for the broader levels.
type Query struct {
	Org      string `json:"org"`
	Project  string `json:"project,omitempty"`
	User     string `json:"user,omitempty"`
	MinLevel string `json:"min_level,omitempty"`
	Limit    int    `json:"limit"`
}

// Pattern is one learned entry as the service returns it. Scope tagging
// happens client-side during the cascade merge.
type Pattern struct {
	Insight       string `json:"insight"`
	Reinforcement string `json:"reinforcement,omitempty"`
	Warning       string `json:"warning,omitempty"`
}

// QueryResult holds one level's patterns and antipatterns.
type QueryResult struct {
	Patterns     []Pattern `json:"patterns"`
	Antipatterns []Pattern `json:"antipatterns"`
}

// Verification is the service's answer to an identity check.
type Verification struct {
	Verified bool   `json:"verified"`
	Org      string `json:"org,omitempty"`
	Project  string `json:"project,omitempty"`
	Trust    string `json:"trust,omitempty"`
}

// Client is the remote pattern API. The surrounding application supplies
// the implementation; HTTPClient is the default.
type Client interface {
	SubmitReflection(ctx context.Context, sub ReflectionSubmission) error
	SubmitInsight(ctx context.Context, sub InsightSubmission) error
	QueryReflections(ctx context.Context, q Query) (*QueryResult, error)
	VerifyIdentity(ctx context.Context, remoteID, user string) (*Verification, error)
}
