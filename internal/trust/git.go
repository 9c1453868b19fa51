package trust

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os/exec"
	"strings"
	"time"
)

// gitTimeout bounds every git invocation. Identity resolution must never
// hang the host process on a wedged filesystem.
const gitTimeout = 5 * time.Second

// runGit executes git in dir and returns trimmed stdout.
func runGit(dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CanonicalRemote normalizes a git remote URL to host/org/repo form.
// SSH, scp-style, and HTTP(S) remotes of the same repository all collapse
// to the same canonical string. Returns false when the URL does not carry
// at least host, org, and repo.
func CanonicalRemote(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Strip URL schemes.
	for _, scheme := range []string{"ssh://", "git://", "https://", "http://"} {
		if strings.HasPrefix(s, scheme) {
			s = strings.TrimPrefix(s, scheme)
			break
		}
	}

	// scp-style: git@host:org/repo.git
	if at := strings.Index(s, "@"); at >= 0 {
		s = s[at+1:]
	}
	s = strings.Replace(s, ":", "/", 1)

	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return "", false
	}
	host := strings.ToLower(parts[0])
	org := parts[len(parts)-2]
	repo := parts[len(parts)-1]
	if host == "" || org == "" || repo == "" {
		return "", false
	}
	return host + "/" + org + "/" + repo, true
}

// ShortHash returns the 12-hex-character identity hash of a canonical
// remote string.
func ShortHash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:12]
}
