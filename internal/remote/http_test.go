package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Spilno-me/herald/internal/remote"
)

func newClient(t *testing.T, handler http.HandlerFunc) *remote.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return remote.NewHTTPClient(srv.URL, 2*time.Second, "test")
}

func TestHTTPClient_SubmitInsight_Success(t *testing.T) {
	var gotPath string
	var gotBody remote.InsightSubmission
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	})

	err := c.SubmitInsight(context.Background(), remote.InsightSubmission{
		Insight:   "prefer small interfaces",
		ToScope:   "project",
		FromScope: "user",
	})
	if err != nil {
		t.Fatalf("SubmitInsight() error: %v", err)
	}
	if gotPath != "/insights" {
		t.Errorf("path = %q, want /insights", gotPath)
	}
	if gotBody.Insight != "prefer small interfaces" {
		t.Errorf("body insight = %q", gotBody.Insight)
	}
}

func TestHTTPClient_StructuredRejection(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"code":"unknown_identity","message":"identity not registered"}}`))
	})

	err := c.SubmitInsight(context.Background(), remote.InsightSubmission{Insight: "x"})
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != "unknown_identity" {
		t.Errorf("code = %q, want unknown_identity", apiErr.Code)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", apiErr.Status)
	}
	if errors.Is(err, remote.ErrUnreachable) {
		t.Error("structured rejection must not look unreachable")
	}
}

func TestHTTPClient_RejectionWithUnparseableBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	})

	err := c.SubmitReflection(context.Background(), remote.ReflectionSubmission{Insight: "x"})
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError even with garbage body", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", apiErr.Status)
	}
}

func TestHTTPClient_RefusedConnection(t *testing.T) {
	// Grab a port that is guaranteed closed by shutting the server first.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := remote.NewHTTPClient(url, time.Second, "test")
	err := c.SubmitInsight(context.Background(), remote.InsightSubmission{Insight: "x"})
	if !errors.Is(err, remote.ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
}

func TestHTTPClient_TimeoutIsUnreachable(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.SubmitInsight(ctx, remote.InsightSubmission{Insight: "x"})
	if !errors.Is(err, remote.ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable on timeout", err)
	}
}

func TestHTTPClient_QueryReflections(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reflections/query" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(remote.QueryResult{
			Patterns:     []remote.Pattern{{Insight: "keep handlers thin"}},
			Antipatterns: []remote.Pattern{{Insight: "no global state", Warning: "breaks test isolation"}},
		})
	})

	res, err := c.QueryReflections(context.Background(), remote.Query{Org: "spilno", Limit: 10})
	if err != nil {
		t.Fatalf("QueryReflections() error: %v", err)
	}
	if len(res.Patterns) != 1 || res.Patterns[0].Insight != "keep handlers thin" {
		t.Errorf("patterns = %+v", res.Patterns)
	}
	if len(res.Antipatterns) != 1 || res.Antipatterns[0].Warning == "" {
		t.Errorf("antipatterns = %+v", res.Antipatterns)
	}
}

func TestHTTPClient_VerifyIdentity(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["remote_id"] == "" || body["user"] == "" {
			t.Errorf("verify body = %v", body)
		}
		_ = json.NewEncoder(w).Encode(remote.Verification{Verified: true, Org: "spilno", Trust: "high"})
	})

	v, err := c.VerifyIdentity(context.Background(), "ab12cd34ef56", "casey")
	if err != nil {
		t.Fatalf("VerifyIdentity() error: %v", err)
	}
	if !v.Verified || v.Org != "spilno" {
		t.Errorf("verification = %+v", v)
	}
}
