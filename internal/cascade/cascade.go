// Package cascade resolves pattern queries across the three organizational
// scopes and merges the results deterministically.
//
// The three levels are queried sequentially in fixed priority order —
// user, project, org — to bound remote load and keep dedup ordering
// deterministic. A failure at one level is recorded and skipped; partial
// results always beat an all-or-nothing failure. Entries with identical
// case-folded, trimmed insight text collapse to the first occurrence in
// priority order, so a user's own pattern overrides an identical inherited
// one from project or org scope.
package cascade

import (
	"context"
	"strings"

	"github.com/Spilno-me/herald/internal/remote"
	"github.com/Spilno-me/herald/internal/trust"
	"go.uber.org/zap"
)

// Scope is one level in the query priority and dedup hierarchy.
type Scope string

// Scopes, most specific first.
const (
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
	ScopeOrg     Scope = "org"
)

// Entry is one merged pattern, tagged with the scope that produced it
// first. Entries are constructed fresh on every query.
type Entry struct {
	Insight       string `json:"insight"`
	Scope         Scope  `json:"scope"`
	Reinforcement string `json:"reinforcement,omitempty"`
	Warning       string `json:"warning,omitempty"`
}

// Merged is the deduplicated union of all reachable levels.
type Merged struct {
	Patterns     []Entry `json:"patterns"`
	Antipatterns []Entry `json:"antipatterns"`

	// FailedScopes lists levels whose query failed and were skipped.
	FailedScopes []Scope `json:"failed_scopes,omitempty"`
}

// levelResult is one scope's query outcome: either a result or an error,
// aggregated by the single merge step instead of suppressed at each call
// site.
type levelResult struct {
	scope Scope
	res   *remote.QueryResult
	err   error
}

// QueryPatterns issues the three scope queries for the given identity and
// merges the results. It never returns an error: unreachable levels are
// reported in FailedScopes.
func QueryPatterns(ctx context.Context, client remote.Client, tag trust.Tag, limit int, log *zap.Logger) Merged {
	queries := []struct {
		scope Scope
		query remote.Query
	}{
		{ScopeUser, remote.Query{Org: tag.Org, Project: tag.Project, User: tag.User, Limit: limit}},
		{ScopeProject, remote.Query{Org: tag.Org, Project: tag.Project, Limit: limit}},
		{ScopeOrg, remote.Query{Org: tag.Org, Limit: limit}},
	}

	levels := make([]levelResult, 0, len(queries))
	for _, q := range queries {
		res, err := client.QueryReflections(ctx, q.query)
		if err != nil {
			log.Warn("scope query failed, continuing cascade",
				zap.String("scope", string(q.scope)), zap.Error(err))
		}
		levels = append(levels, levelResult{scope: q.scope, res: res, err: err})
	}

	return merge(levels)
}

// merge applies scope-priority dedup across all levels. The levels slice
// must already be in priority order; the merge depends only on that order,
// never on arrival time.
func merge(levels []levelResult) Merged {
	var out Merged
	seenPatterns := make(map[string]bool)
	seenAnti := make(map[string]bool)

	for _, lvl := range levels {
		if lvl.err != nil {
			out.FailedScopes = append(out.FailedScopes, lvl.scope)
			continue
		}
		if lvl.res == nil {
			continue
		}
		out.Patterns = appendNew(out.Patterns, seenPatterns, lvl.res.Patterns, lvl.scope)
		out.Antipatterns = appendNew(out.Antipatterns, seenAnti, lvl.res.Antipatterns, lvl.scope)
	}
	return out
}

// appendNew adds patterns whose dedup key is unseen, tagging each with the
// scope that produced it. Later duplicates at broader scopes are dropped
// silently.
func appendNew(dst []Entry, seen map[string]bool, patterns []remote.Pattern, scope Scope) []Entry {
	for _, p := range patterns {
		key := dedupKey(p.Insight)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, Entry{
			Insight:       p.Insight,
			Scope:         scope,
			Reinforcement: p.Reinforcement,
			Warning:       p.Warning,
		})
	}
	return dst
}

// dedupKey is the single case-folded, trimmed key used across all levels.
func dedupKey(insight string) string {
	return strings.ToLower(strings.TrimSpace(insight))
}
