// Package journal keeps a local SQLite record of everything herald has
// successfully transmitted.
//
// The journal is local-first history: the agent can review what it shared
// even when the pattern service is down. Only sanitized content is ever
// recorded. Repeated transmissions of the same normalized text collapse
// into a duplicate-count bump instead of a new row.
package journal

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Entry is one journaled transmission.
type Entry struct {
	ID             int64  `json:"id"`
	Kind           string `json:"kind"`
	Content        string `json:"content"`
	Topic          string `json:"topic,omitempty"`
	Scope          string `json:"scope,omitempty"`
	DataClass      string `json:"data_class"`
	Org            string `json:"org"`
	Project        string `json:"project"`
	Account        string `json:"account"`
	DuplicateCount int    `json:"duplicate_count"`
	CreatedAt      string `json:"created_at"`
	LastSentAt     string `json:"last_sent_at"`
}

// RecordParams holds the input for journaling one transmission.
type RecordParams struct {
	Kind      string
	Content   string
	Topic     string
	Scope     string
	DataClass string
	Org       string
	Project   string
	Account   string
}

// Stats holds aggregate journal counts.
type Stats struct {
	Entries       int `json:"entries"`
	Transmissions int `json:"transmissions"`
}

// Config holds journal configuration.
type Config struct {
	DataDir          string
	MaxSearchResults int
}

// DefaultConfig returns the default journal configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:          filepath.Join(home, ".herald"),
		MaxSearchResults: 20,
	}
}

// Store is the SQLite-backed journal.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (or creates) the journal database under cfg.DataDir.
func New(cfg Config) (*Store, error) {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 20
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, "journal.db"))
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS journal (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			kind            TEXT    NOT NULL,
			content         TEXT    NOT NULL,
			topic           TEXT,
			scope           TEXT,
			data_class      TEXT    NOT NULL DEFAULT 'public',
			org             TEXT    NOT NULL,
			project         TEXT    NOT NULL,
			account         TEXT    NOT NULL,
			normalized_hash TEXT    NOT NULL,
			duplicate_count INTEGER NOT NULL DEFAULT 1,
			created_at      TEXT    NOT NULL DEFAULT (datetime('now')),
			last_sent_at    TEXT    NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_journal_hash
			ON journal(normalized_hash, org, project);

		CREATE VIRTUAL TABLE IF NOT EXISTS journal_fts USING fts5(
			content,
			topic,
			content='journal',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Create FTS triggers (idempotent)
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='journal_fts_insert'",
	).Scan(&name)

	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER journal_fts_insert AFTER INSERT ON journal BEGIN
				INSERT INTO journal_fts(rowid, content, topic)
				VALUES (new.id, new.content, new.topic);
			END;

			CREATE TRIGGER journal_fts_delete AFTER DELETE ON journal BEGIN
				INSERT INTO journal_fts(journal_fts, rowid, content, topic)
				VALUES ('delete', old.id, old.content, old.topic);
			END;

			CREATE TRIGGER journal_fts_update AFTER UPDATE ON journal BEGIN
				INSERT INTO journal_fts(journal_fts, rowid, content, topic)
				VALUES ('delete', old.id, old.content, old.topic);
				INSERT INTO journal_fts(rowid, content, topic)
				VALUES (new.id, new.content, new.topic);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

// normalizedHash collapses case and surrounding whitespace before hashing
// so trivially re-worded duplicates still count as one entry.
func normalizedHash(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// Record journals one confirmed transmission. A repeat of the same
// normalized content within the same org/project bumps the duplicate
// count instead of inserting a new row. Returns the row ID and whether it
// was a duplicate.
func (s *Store) Record(p RecordParams) (int64, bool, error) {
	if p.Content == "" {
		return 0, false, fmt.Errorf("journal: content is required")
	}
	hash := normalizedHash(p.Content)

	var id int64
	err := s.db.QueryRow(
		`SELECT id FROM journal WHERE normalized_hash = ? AND org = ? AND project = ?`,
		hash, p.Org, p.Project,
	).Scan(&id)
	switch {
	case err == nil:
		_, err = s.db.Exec(
			`UPDATE journal
			 SET duplicate_count = duplicate_count + 1,
			     last_sent_at = datetime('now')
			 WHERE id = ?`, id)
		if err != nil {
			return 0, false, fmt.Errorf("journal: bump duplicate: %w", err)
		}
		return id, true, nil
	case err != sql.ErrNoRows:
		return 0, false, fmt.Errorf("journal: dedup lookup: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO journal (kind, content, topic, scope, data_class, org, project, account, normalized_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Kind, p.Content, p.Topic, p.Scope, p.DataClass, p.Org, p.Project, p.Account, hash)
	if err != nil {
		return 0, false, fmt.Errorf("journal: insert: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("journal: last insert id: %w", err)
	}
	return id, false, nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}
	rows, err := s.db.Query(selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return scanEntries(rows)
}

// Search performs full-text search across entry content and topic,
// best match first. An empty or whitespace-only query falls back to
// Recent.
func (s *Store) Search(query string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return s.Recent(limit)
	}

	rows, err := s.db.Query(`
		SELECT j.id, j.kind, j.content, COALESCE(j.topic, ''), COALESCE(j.scope, ''),
		       j.data_class, j.org, j.project, j.account, j.duplicate_count,
		       j.created_at, j.last_sent_at
		FROM journal_fts fts
		JOIN journal j ON j.id = fts.rowid
		WHERE journal_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: search: %w", err)
	}
	return scanEntries(rows)
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "fix auth bug" → `"fix" "auth" "bug"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

// Stats returns aggregate counts: distinct entries and total
// transmissions including duplicates.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(duplicate_count), 0) FROM journal`,
	).Scan(&st.Entries, &st.Transmissions)
	if err != nil {
		return Stats{}, fmt.Errorf("journal: stats: %w", err)
	}
	return st, nil
}

const selectColumns = `
	SELECT id, kind, content, COALESCE(topic, ''), COALESCE(scope, ''),
	       data_class, org, project, account, duplicate_count,
	       created_at, last_sent_at
	FROM journal`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Content, &e.Topic, &e.Scope,
			&e.DataClass, &e.Org, &e.Project, &e.Account, &e.DuplicateCount,
			&e.CreatedAt, &e.LastSentAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
