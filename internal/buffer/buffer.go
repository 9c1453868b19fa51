// Package buffer persists submissions that failed to reach the pattern
// service and resyncs them later.
//
// Each identity (org/project/user) owns one flat JSON file. Enqueue
// rewrites the whole file before returning, so an item is durable the
// instant the call succeeds, even across a crash. Drain attempts delivery
// once per item with no retry counters or backoff: every call treats every
// remaining item as a fresh attempt, and double delivery on a lost
// acknowledgment is an accepted cost. A corrupted file is discarded and
// reported, never raised as a fatal error — the buffer is a queue, not a
// source of truth.
package buffer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Spilno-me/herald/internal/remote"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind discriminates how a buffered item is routed back to the service.
type Kind string

// Payload kinds.
const (
	KindInsight    Kind = "insight"
	KindReflection Kind = "reflection"
)

// Item is one buffered submission. All free-text fields were sanitized
// before the original transmission attempt; the buffer never holds raw
// content. Items are never mutated in place: a failed resync re-persists
// the record unchanged.
type Item struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Org        string    `json:"org"`
	Project    string    `json:"project"`
	User       string    `json:"user"`
	BufferedAt time.Time `json:"buffered_at"`

	Insight    *remote.InsightSubmission    `json:"insight,omitempty"`
	Reflection *remote.ReflectionSubmission `json:"reflection,omitempty"`
}

// DrainResult partitions one drain pass.
type DrainResult struct {
	Synced []Item `json:"synced"`
	Failed []Item `json:"failed"`
}

// Preview is the dry-run view of a pending buffer.
type Preview struct {
	Items       []Item `json:"items"`
	Insights    int    `json:"insights"`
	Reflections int    `json:"reflections"`
}

// Store is a filesystem-backed offline buffer rooted at one directory.
// A single process instance owns a file at a time; two processes sharing
// an identity directory can race, which is an accepted limitation.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore creates a buffer store rooted at dir.
func NewStore(dir string, log *zap.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// unsafeChars is everything we refuse to put in a buffer filename.
// Underscores are excluded so the "__" identity separator stays unique.
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9.-]+`)

// cleanComponent makes one identity component filename-safe.
func cleanComponent(v string) string {
	v = unsafeChars.ReplaceAllString(v, "-")
	if v == "" {
		v = "none"
	}
	return v
}

// IdentityKey is the canonical "org/project/user" form of an identity,
// as used in buffer filenames and identity listings.
func IdentityKey(org, project, user string) string {
	return cleanComponent(org) + "/" + cleanComponent(project) + "/" + cleanComponent(user)
}

// fileFor maps an identity to its backing file. Different identities
// never collide: each component is sanitized independently and joined
// with a separator the sanitizer can't produce.
func (s *Store) fileFor(org, project, user string) string {
	name := fmt.Sprintf("%s__%s__%s.json",
		cleanComponent(org), cleanComponent(project), cleanComponent(user))
	return filepath.Join(s.dir, name)
}

// Enqueue appends one item to its identity's collection and persists the
// whole file before returning. Missing ID and capture timestamp are
// filled in.
func (s *Store) Enqueue(item Item) error {
	if item.Kind != KindInsight && item.Kind != KindReflection {
		return fmt.Errorf("buffer: unknown payload kind %q", item.Kind)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.BufferedAt.IsZero() {
		item.BufferedAt = time.Now().UTC()
	}

	path := s.fileFor(item.Org, item.Project, item.User)
	items := s.load(path)
	items = append(items, item)
	return s.persist(path, items)
}

// Peek returns the pending items for an identity without touching them.
func (s *Store) Peek(org, project, user string) []Item {
	return s.load(s.fileFor(org, project, user))
}

// DryRun reports what a drain would attempt, without any network calls.
func (s *Store) DryRun(org, project, user string) Preview {
	items := s.load(s.fileFor(org, project, user))
	p := Preview{Items: items}
	for _, it := range items {
		switch it.Kind {
		case KindInsight:
			p.Insights++
		case KindReflection:
			p.Reflections++
		}
	}
	return p
}

// Drain attempts remote delivery once per pending item, routed by payload
// kind. Items the service accepted are removed; the failed remainder is
// written back unchanged. An empty remainder deletes the backing file.
func (s *Store) Drain(ctx context.Context, client remote.Client, org, project, user string) (*DrainResult, error) {
	path := s.fileFor(org, project, user)
	items := s.load(path)

	res := &DrainResult{}
	for _, item := range items {
		if err := s.deliver(ctx, client, item); err != nil {
			s.log.Debug("resync attempt failed",
				zap.String("id", item.ID), zap.String("kind", string(item.Kind)), zap.Error(err))
			res.Failed = append(res.Failed, item)
			continue
		}
		res.Synced = append(res.Synced, item)
	}

	if len(res.Failed) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return res, fmt.Errorf("buffer: removing drained file: %w", err)
		}
		return res, nil
	}
	if err := s.persist(path, res.Failed); err != nil {
		return res, err
	}
	return res, nil
}

// deliver routes one item to the matching remote operation.
func (s *Store) deliver(ctx context.Context, client remote.Client, item Item) error {
	switch item.Kind {
	case KindInsight:
		if item.Insight == nil {
			return fmt.Errorf("buffer: insight item %s has no payload", item.ID)
		}
		return client.SubmitInsight(ctx, *item.Insight)
	case KindReflection:
		if item.Reflection == nil {
			return fmt.Errorf("buffer: reflection item %s has no payload", item.ID)
		}
		return client.SubmitReflection(ctx, *item.Reflection)
	default:
		return fmt.Errorf("buffer: unknown payload kind %q", item.Kind)
	}
}

// load reads an identity's collection. A missing file is an empty buffer.
// An unparseable file is discarded with a warning: losing the queue beats
// blocking every startup on it.
func (s *Store) load(path string) []Item {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("buffer file unreadable, treating as empty",
				zap.String("path", path), zap.Error(err))
		}
		return nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("discarding corrupt buffer file",
			zap.String("path", path), zap.Int("bytes_lost", len(data)), zap.Error(err))
		_ = os.Remove(path)
		return nil
	}
	return items
}

// persist writes the whole collection for one identity.
func (s *Store) persist(path string, items []Item) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("buffer: creating directory: %w", err)
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("buffer: encoding items: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("buffer: writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Identities lists the identities that currently have pending items,
// as "org/project/user" strings.
func (s *Store) Identities() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		parts := strings.Split(strings.TrimSuffix(name, ".json"), "__")
		if len(parts) != 3 {
			continue
		}
		out = append(out, strings.Join(parts, "/"))
	}
	return out
}
