package trust

import (
	"context"
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Spilno-me/herald/internal/remote"
	"go.uber.org/zap"
)

// Environment overrides. An env-supplied identity is trivially forgeable,
// so it always resolves to low trust with propagation disabled.
const (
	EnvOrg     = "HERALD_ORG"
	EnvProject = "HERALD_PROJECT"
)

// Context record location inside the working tree. The record is a cache,
// never a source of truth: a corrupt or deleted file falls through to the
// next resolution step.
const (
	contextDir  = ".herald"
	contextFile = "context.json"
)

// genericSegments are directory names that say nothing about the project
// and are skipped by the path fallback.
var genericSegments = map[string]bool{
	"home": true, "users": true, "user": true,
	"src": true, "code": true, "dev": true, "work": true,
	"projects": true, "project": true, "repos": true, "repo": true,
	"workspace": true, "workspaces": true,
	"documents": true, "desktop": true, "go": true, "tmp": true,
}

// Resolver derives and caches the identity tag for one working directory.
// Construct one per process (or per identity) and thread it through; the
// cache is invalidated only by an explicit Resolve(true).
type Resolver struct {
	workDir string
	log     *zap.Logger

	mu     sync.Mutex
	cached *Tag

	// Test seams, following the store's injectable-open pattern.
	gitOutput func(dir string, args ...string) (string, error)
	osAccount func() string
}

// NewResolver creates a resolver rooted at workDir.
func NewResolver(workDir string, log *zap.Logger) *Resolver {
	return &Resolver{
		workDir:   workDir,
		log:       log,
		gitOutput: runGit,
		osAccount: osAccountName,
	}
}

// Resolve returns the identity tag, computing it on first use. With force
// set, the cache and any stored record lookup are re-evaluated.
func (r *Resolver) Resolve(force bool) Tag {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && !force {
		return *r.cached
	}
	tag := r.derive()
	r.cached = &tag
	return tag
}

// derive walks the resolution order: env override, stored record, git
// remote, path fallback. User identity is resolved independently and
// never fails.
func (r *Resolver) derive() Tag {
	u := r.resolveUser()

	if org, ok := os.LookupEnv(EnvOrg); ok && org != "" {
		project := os.Getenv(EnvProject)
		if project == "" {
			project = filepath.Base(r.workDir)
		}
		return Tag{
			Org: org, Project: project, User: u,
			TrustLevel: LevelLow, Source: SourceEnv, Propagates: false,
		}
	}

	if tag, ok := r.loadRecord(); ok {
		tag.User = u
		return tag
	}

	if tag, ok := r.deriveGit(u); ok {
		return tag
	}

	return r.derivePath(u)
}

// deriveGit resolves identity from the nearest repository's default
// remote. High trust: the remote hash cannot be forged without knowing
// the canonical URL.
func (r *Resolver) deriveGit(u string) (Tag, bool) {
	root, err := r.gitOutput(r.workDir, "rev-parse", "--show-toplevel")
	if err != nil || root == "" {
		return Tag{}, false
	}
	rawURL, err := r.gitOutput(root, "config", "--get", "remote.origin.url")
	if err != nil || rawURL == "" {
		return Tag{}, false
	}
	canonical, ok := CanonicalRemote(rawURL)
	if !ok {
		return Tag{}, false
	}

	parts := strings.Split(canonical, "/")
	return Tag{
		Org:        parts[1],
		Project:    parts[2],
		User:       u,
		TrustLevel: LevelHigh,
		Source:     SourceGit,
		Propagates: true,
		RemoteID:   ShortHash(canonical),
	}, true
}

// derivePath falls back to the last two meaningful path segments.
func (r *Resolver) derivePath(u string) Tag {
	abs, err := filepath.Abs(r.workDir)
	if err != nil {
		abs = r.workDir
	}

	var meaningful []string
	for _, seg := range strings.Split(filepath.ToSlash(abs), "/") {
		if seg == "" || genericSegments[strings.ToLower(seg)] {
			continue
		}
		meaningful = append(meaningful, seg)
	}

	tag := Tag{
		Org: "local", Project: "unknown", User: u,
		TrustLevel: LevelLow, Source: SourcePath, Propagates: false,
	}
	switch {
	case len(meaningful) >= 2:
		tag.Org = meaningful[len(meaningful)-2]
		tag.Project = meaningful[len(meaningful)-1]
	case len(meaningful) == 1:
		tag.Project = meaningful[0]
	}
	return tag
}

// resolveUser never fails: local git identity, global git identity, OS
// account, then a fixed sentinel.
func (r *Resolver) resolveUser() string {
	if name, err := r.gitOutput(r.workDir, "config", "user.name"); err == nil && name != "" {
		return name
	}
	if name, err := r.gitOutput(r.workDir, "config", "--global", "user.name"); err == nil && name != "" {
		return name
	}
	if name := r.osAccount(); name != "" {
		return name
	}
	return "anonymous"
}

// osAccountName returns the operating-system account name, without any
// domain prefix, or empty when unavailable.
func osAccountName() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	name := u.Username
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ─── Stored context record ───────────────────────────────────────────────────

// loadRecord searches upward from the working directory for a persisted
// context record and reuses its source and trust verbatim. The walk is
// bounded: inside a repository it stops at the toplevel, so a record in
// an unrelated outer directory cannot shadow this tree's own derivation.
// The home directory itself is always skipped — ~/.herald is herald's
// data directory, not a working-tree record. A record that fails to
// parse is ignored, never fatal.
func (r *Resolver) loadRecord() (Tag, bool) {
	dir, err := filepath.Abs(r.workDir)
	if err != nil {
		return Tag{}, false
	}

	stop := ""
	if root, gitErr := r.gitOutput(r.workDir, "rev-parse", "--show-toplevel"); gitErr == nil && root != "" {
		if abs, absErr := filepath.Abs(root); absErr == nil {
			stop = abs
		}
	}
	home, _ := os.UserHomeDir()

	for {
		if dir != home {
			path := filepath.Join(dir, contextDir, contextFile)
			data, err := os.ReadFile(path)
			if err == nil {
				var tag Tag
				if jsonErr := json.Unmarshal(data, &tag); jsonErr != nil {
					r.log.Warn("ignoring corrupt context record",
						zap.String("path", path), zap.Error(jsonErr))
					return Tag{}, false
				}
				if tag.Org == "" {
					return Tag{}, false
				}
				return tag, true
			}
		}
		if dir == stop {
			return Tag{}, false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Tag{}, false
		}
		dir = parent
	}
}

// saveRecord persists the tag under .herald/ in the working tree so later
// processes skip re-derivation and keep the verified trust.
func (r *Resolver) saveRecord(tag Tag) error {
	dir := filepath.Join(r.workDir, contextDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tag, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, contextFile), append(data, '\n'), 0o644)
}

// ─── Verification ────────────────────────────────────────────────────────────

// Verify submits the derived remote identity to the pattern service. A
// confirmed registration upgrades trust to verified/high and enables
// propagation; the upgraded tag is persisted as the context record. Any
// failure — including an unreachable service — leaves the locally derived
// trust unchanged. An explicit denial downgrades only in strict mode.
func (r *Resolver) Verify(ctx context.Context, client remote.Client, strict bool) Tag {
	tag := r.Resolve(false)
	if tag.RemoteID == "" {
		return tag
	}

	v, err := client.VerifyIdentity(ctx, tag.RemoteID, tag.User)
	if err != nil {
		r.log.Debug("identity verification unavailable", zap.Error(err))
		return tag
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case v.Verified:
		tag.Source = SourceVerified
		tag.TrustLevel = LevelHigh
		tag.Propagates = true
		if v.Org != "" {
			tag.Org = v.Org
		}
		if v.Project != "" {
			tag.Project = v.Project
		}
		if err := r.saveRecord(tag); err != nil {
			r.log.Warn("persisting context record failed", zap.Error(err))
		}
	case strict:
		tag.TrustLevel = LevelLow
		tag.Propagates = false
	default:
		return tag
	}

	r.cached = &tag
	return tag
}
