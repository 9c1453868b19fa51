package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// HTTPClient talks to the pattern service over JSON/HTTP. One instance is
// created at startup and shared; it holds no per-request state.
type HTTPClient struct {
	base      string
	userAgent string
	http      *http.Client
}

// NewHTTPClient creates a client for the given base URL. A zero timeout
// falls back to the default; every call is bounded by it, and an expired
// deadline surfaces as ErrUnreachable like any other network failure.
func NewHTTPClient(base string, timeout time.Duration, version string) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		base:      base,
		userAgent: "herald/" + version,
		http:      &http.Client{Timeout: timeout},
	}
}

// SubmitReflection delivers one sanitized session reflection.
func (c *HTTPClient) SubmitReflection(ctx context.Context, sub ReflectionSubmission) error {
	return c.post(ctx, "/reflections", sub, nil)
}

// SubmitInsight delivers one sanitized insight.
func (c *HTTPClient) SubmitInsight(ctx context.Context, sub InsightSubmission) error {
	return c.post(ctx, "/insights", sub, nil)
}

// QueryReflections fetches patterns and antipatterns for one cascade level.
func (c *HTTPClient) QueryReflections(ctx context.Context, q Query) (*QueryResult, error) {
	var out QueryResult
	if err := c.post(ctx, "/reflections/query", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyIdentity submits a derived remote identity for registration checks.
func (c *HTTPClient) VerifyIdentity(ctx context.Context, remoteID, user string) (*Verification, error) {
	body := map[string]string{"remote_id": remoteID, "user": user}
	var out Verification
	if err := c.post(ctx, "/identity/verify", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// errorEnvelope is the service's structured failure body.
type errorEnvelope struct {
	Error APIError `json:"error"`
}

// post sends one JSON request and decodes the response into out (if
// non-nil). Network failures and timeouts wrap ErrUnreachable; non-2xx
// responses become *APIError whether or not the body parses.
func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
