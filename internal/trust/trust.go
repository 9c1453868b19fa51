// Package trust derives the organizational identity of the working
// directory and the trust tier attached to it.
//
// Identity comes from, in order: an explicit environment override, a
// previously persisted context record in the working tree, the
// version-control remote, or the directory path as a last resort. Only
// git-derived and remotely verified identities earn high trust; env and
// path identities are trivially forgeable, so content learned under them
// never propagates beyond the current user scope.
package trust

// Level is the trust tier attached to a derived identity.
type Level string

// Trust tiers.
const (
	LevelLow  Level = "low"
	LevelHigh Level = "high"
)

// Source records how the identity was derived.
type Source string

// Identity sources. Only git and verified may carry high trust.
const (
	SourceEnv      Source = "env"
	SourcePath     Source = "path"
	SourceGit      Source = "git"
	SourceStored   Source = "stored"
	SourceVerified Source = "verified"
)

// Tag is the resolved identity for the current working tree. It is
// computed once per process and cached by the Resolver unless an explicit
// refresh is requested.
type Tag struct {
	Org        string `json:"org"`
	Project    string `json:"project"`
	User       string `json:"user"`
	TrustLevel Level  `json:"trust_level"`
	Source     Source `json:"source"`
	Propagates bool   `json:"propagates"`

	// RemoteID is the deterministic short hash of the canonical remote
	// URL. Empty unless the identity was derived from version control.
	// The same remote always yields the same hash, and the hash cannot
	// be produced without knowing the canonical URL.
	RemoteID string `json:"remote_id,omitempty"`
}
