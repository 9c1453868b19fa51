package trust

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Spilno-me/herald/internal/remote"
	"go.uber.org/zap"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// gitUnavailable simulates a machine without git or outside any repo.
func gitUnavailable(dir string, args ...string) (string, error) {
	return "", errors.New("exit status 1")
}

// fakeGit simulates a repository with the given remote and user name.
func fakeGit(root, remoteURL, userName string) func(string, ...string) (string, error) {
	return func(dir string, args ...string) (string, error) {
		joined := strings.Join(args, " ")
		switch joined {
		case "rev-parse --show-toplevel":
			return root, nil
		case "config --get remote.origin.url":
			if remoteURL == "" {
				return "", errors.New("exit status 1")
			}
			return remoteURL, nil
		case "config user.name", "config --global user.name":
			if userName == "" {
				return "", errors.New("exit status 1")
			}
			return userName, nil
		}
		return "", fmt.Errorf("unexpected git args: %s", joined)
	}
}

func newTestResolver(t *testing.T, dir string) *Resolver {
	t.Helper()
	r := NewResolver(dir, zap.NewNop())
	r.gitOutput = gitUnavailable
	r.osAccount = func() string { return "osuser" }
	return r
}

// fakeVerifier implements remote.Client for verification tests.
type fakeVerifier struct {
	verification *remote.Verification
	err          error
}

func (f *fakeVerifier) SubmitReflection(ctx context.Context, sub remote.ReflectionSubmission) error {
	return errors.New("not implemented")
}
func (f *fakeVerifier) SubmitInsight(ctx context.Context, sub remote.InsightSubmission) error {
	return errors.New("not implemented")
}
func (f *fakeVerifier) QueryReflections(ctx context.Context, q remote.Query) (*remote.QueryResult, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeVerifier) VerifyIdentity(ctx context.Context, remoteID, user string) (*remote.Verification, error) {
	return f.verification, f.err
}

// ─── Resolution order ────────────────────────────────────────────────────────

func TestResolve_EnvOverrideBeatsGitRemote(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver(t, dir)
	// A high-trust remote is simultaneously present; the override must
	// still win with low trust.
	r.gitOutput = fakeGit(dir, "git@github.com:acme/rocket.git", "casey")

	t.Setenv(EnvOrg, "override-org")
	t.Setenv(EnvProject, "override-project")

	tag := r.Resolve(false)
	if tag.Source != SourceEnv {
		t.Fatalf("source = %s, want env", tag.Source)
	}
	if tag.Org != "override-org" || tag.Project != "override-project" {
		t.Errorf("identity = %s/%s", tag.Org, tag.Project)
	}
	if tag.TrustLevel != LevelLow || tag.Propagates {
		t.Errorf("env override must be low trust without propagation, got %s/%v",
			tag.TrustLevel, tag.Propagates)
	}
}

func TestResolve_GitRemote(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver(t, dir)
	r.gitOutput = fakeGit(dir, "git@github.com:Spilno-me/herald.git", "casey")

	tag := r.Resolve(false)
	if tag.Source != SourceGit {
		t.Fatalf("source = %s, want git", tag.Source)
	}
	if tag.Org != "Spilno-me" || tag.Project != "herald" {
		t.Errorf("identity = %s/%s, want Spilno-me/herald", tag.Org, tag.Project)
	}
	if tag.TrustLevel != LevelHigh || !tag.Propagates {
		t.Errorf("git identity should be high trust with propagation")
	}
	if tag.User != "casey" {
		t.Errorf("user = %q, want casey", tag.User)
	}
	want := ShortHash("github.com/Spilno-me/herald")
	if tag.RemoteID != want {
		t.Errorf("remote id = %q, want %q", tag.RemoteID, want)
	}
}

func TestResolve_StoredRecordReusedVerbatim(t *testing.T) {
	dir := t.TempDir()
	record := `{"org":"acme","project":"rocket","user":"old-user","trust_level":"high","source":"verified","propagates":true,"remote_id":"ab12cd34ef56"}`
	mustWriteRecord(t, dir, record)

	r := newTestResolver(t, dir)
	tag := r.Resolve(false)
	if tag.Source != SourceVerified || tag.TrustLevel != LevelHigh || !tag.Propagates {
		t.Errorf("stored trust not reused verbatim: %+v", tag)
	}
	if tag.Org != "acme" || tag.Project != "rocket" {
		t.Errorf("identity = %s/%s", tag.Org, tag.Project)
	}
	// User identity always resolves independently of the record.
	if tag.User != "osuser" {
		t.Errorf("user = %q, want osuser", tag.User)
	}
}

func TestResolve_CorruptRecordFallsThrough(t *testing.T) {
	dir := t.TempDir()
	mustWriteRecord(t, dir, "{not json")

	r := newTestResolver(t, dir)
	tag := r.Resolve(false)
	if tag.Source == SourceStored || tag.Source == SourceVerified {
		t.Errorf("corrupt record must be ignored, got source %s", tag.Source)
	}
}

func TestResolve_RecordAboveRepoRootIgnored(t *testing.T) {
	base := t.TempDir()
	repo := filepath.Join(base, "rocket")
	if err := os.MkdirAll(repo, 0o755); err != nil {
		t.Fatal(err)
	}
	// A record outside the repository; the walk stops at the toplevel.
	mustWriteRecord(t, base,
		`{"org":"stale","project":"stale","trust_level":"high","source":"verified","propagates":true}`)

	r := newTestResolver(t, repo)
	r.gitOutput = fakeGit(repo, "git@github.com:acme/rocket.git", "casey")

	tag := r.Resolve(false)
	if tag.Source != SourceGit {
		t.Fatalf("source = %s, want git", tag.Source)
	}
	if tag.Org != "acme" || tag.Project != "rocket" {
		t.Errorf("record above repo root shadowed git derivation: %+v", tag)
	}
}

func TestResolve_HomeDirectoryRecordIgnored(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	// ~/.herald is the data directory; a context.json there must never be
	// read as a working-tree record.
	mustWriteRecord(t, home,
		`{"org":"stale","project":"stale","trust_level":"high","source":"verified","propagates":true}`)

	workDir := filepath.Join(home, "projects", "app")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(t, workDir)
	tag := r.Resolve(false)
	if tag.Source == SourceStored || tag.Source == SourceVerified {
		t.Fatalf("data-directory record reused as context record: %+v", tag)
	}
	if tag.Org == "stale" {
		t.Errorf("identity leaked from the data directory: %+v", tag)
	}
}

func TestResolve_PathFallback(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "src", "acme", "rocket")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(t, dir)
	tag := r.Resolve(false)
	if tag.Source != SourcePath {
		t.Fatalf("source = %s, want path", tag.Source)
	}
	if tag.Org != "acme" || tag.Project != "rocket" {
		t.Errorf("identity = %s/%s, want acme/rocket", tag.Org, tag.Project)
	}
	if tag.TrustLevel != LevelLow || tag.Propagates {
		t.Error("path identity must be low trust without propagation")
	}
}

func TestResolve_CachesUntilForced(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver(t, dir)
	r.gitOutput = fakeGit(dir, "git@github.com:acme/one.git", "casey")

	first := r.Resolve(false)
	r.gitOutput = fakeGit(dir, "git@github.com:acme/two.git", "casey")

	cached := r.Resolve(false)
	if cached.Project != first.Project {
		t.Errorf("cached project = %q, want %q", cached.Project, first.Project)
	}
	refreshed := r.Resolve(true)
	if refreshed.Project != "two" {
		t.Errorf("refreshed project = %q, want two", refreshed.Project)
	}
}

// ─── User identity ───────────────────────────────────────────────────────────

func TestResolveUser_Fallbacks(t *testing.T) {
	dir := t.TempDir()

	r := newTestResolver(t, dir)
	if tag := r.Resolve(false); tag.User != "osuser" {
		t.Errorf("user = %q, want os account fallback", tag.User)
	}

	r = newTestResolver(t, dir)
	r.osAccount = func() string { return "" }
	if tag := r.Resolve(false); tag.User != "anonymous" {
		t.Errorf("user = %q, want anonymous sentinel", tag.User)
	}

	r = newTestResolver(t, dir)
	r.gitOutput = fakeGit(dir, "", "git-casey")
	if tag := r.Resolve(false); tag.User != "git-casey" {
		t.Errorf("user = %q, want git identity", tag.User)
	}
}

// ─── Remote normalization ────────────────────────────────────────────────────

func TestCanonicalRemote(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"git@github.com:acme/rocket.git", "github.com/acme/rocket", true},
		{"https://github.com/acme/rocket.git", "github.com/acme/rocket", true},
		{"https://GitHub.com/acme/rocket", "github.com/acme/rocket", true},
		{"ssh://git@gitlab.com/acme/rocket.git", "gitlab.com/acme/rocket", true},
		{"https://gitlab.com/group/sub/rocket.git", "gitlab.com/sub/rocket", true},
		{"", "", false},
		{"not-a-url", "", false},
		{"git@github.com:rocket.git", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalRemote(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("CanonicalRemote(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestShortHash_Deterministic(t *testing.T) {
	a := ShortHash("github.com/acme/rocket")
	b := ShortHash("github.com/acme/rocket")
	c := ShortHash("github.com/acme/other")
	if a != b {
		t.Errorf("hash not deterministic: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different remotes produced the same hash")
	}
	if len(a) != 12 {
		t.Errorf("hash length = %d, want 12", len(a))
	}
}

// ─── Verification ────────────────────────────────────────────────────────────

func TestVerify_UpgradesAndPersists(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver(t, dir)
	r.gitOutput = fakeGit(dir, "git@github.com:acme/rocket.git", "casey")

	client := &fakeVerifier{verification: &remote.Verification{Verified: true, Org: "acme-verified"}}
	tag := r.Verify(context.Background(), client, false)

	if tag.Source != SourceVerified || tag.TrustLevel != LevelHigh || !tag.Propagates {
		t.Fatalf("verification did not upgrade: %+v", tag)
	}
	if tag.Org != "acme-verified" {
		t.Errorf("org = %q, want service-confirmed org", tag.Org)
	}

	// A fresh resolver in the same tree picks up the persisted record.
	fresh := newTestResolver(t, dir)
	stored := fresh.Resolve(false)
	if stored.Source != SourceVerified || stored.TrustLevel != LevelHigh {
		t.Errorf("persisted record not reused: %+v", stored)
	}
}

func TestVerify_UnreachableLeavesTrustUnchanged(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver(t, dir)
	r.gitOutput = fakeGit(dir, "git@github.com:acme/rocket.git", "casey")

	client := &fakeVerifier{err: remote.ErrUnreachable}
	tag := r.Verify(context.Background(), client, false)
	if tag.Source != SourceGit || tag.TrustLevel != LevelHigh {
		t.Errorf("unreachable verification changed trust: %+v", tag)
	}
}

func TestVerify_DenialDowngradesOnlyInStrictMode(t *testing.T) {
	dir := t.TempDir()
	denied := &fakeVerifier{verification: &remote.Verification{Verified: false}}

	r := newTestResolver(t, dir)
	r.gitOutput = fakeGit(dir, "git@github.com:acme/rocket.git", "casey")
	tag := r.Verify(context.Background(), denied, false)
	if tag.TrustLevel != LevelHigh || !tag.Propagates {
		t.Errorf("non-strict denial downgraded trust: %+v", tag)
	}

	r = newTestResolver(t, dir)
	r.gitOutput = fakeGit(dir, "git@github.com:acme/rocket.git", "casey")
	tag = r.Verify(context.Background(), denied, true)
	if tag.TrustLevel != LevelLow || tag.Propagates {
		t.Errorf("strict denial did not downgrade: %+v", tag)
	}
}

func TestVerify_NoRemoteIdentitySkips(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver(t, dir)

	client := &fakeVerifier{verification: &remote.Verification{Verified: true}}
	tag := r.Verify(context.Background(), client, false)
	if tag.Source == SourceVerified {
		t.Error("verification ran without a derived remote identity")
	}
}

func mustWriteRecord(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, contextDir), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, contextDir, contextFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
