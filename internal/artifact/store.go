// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact persists the outputs of a research pass. Artifacts are
// versioned per pass and name in a SQLite database; large outputs can also
// be uploaded to a blob store.
//
// See docs/ARCHITECTURE.md § Artifacts.
package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no artifact matches a lookup.
var ErrNotFound = errors.New("artifact not found")

// Artifact is one stored version of a named pass output.
type Artifact struct {
	Pass        string
	Name        string
	Version     int
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Info describes an artifact without its content.
type Info struct {
	Pass        string    `json:"pass" yaml:"pass"`
	Name        string    `json:"name" yaml:"name"`
	Version     int       `json:"version" yaml:"version"`
	ContentType string    `json:"content_type" yaml:"content_type"`
	Size        int       `json:"size" yaml:"size"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Store saves and loads versioned artifacts.
type Store interface {
	// Save stores data as the next version of pass/name and returns it.
	Save(ctx context.Context, pass, name, contentType string, data []byte) (int, error)

	// Load returns one version of pass/name; version 0 means the latest.
	Load(ctx context.Context, pass, name string, version int) (Artifact, error)

	// List describes every stored version of a pass, or of every pass
	// when pass is empty.
	List(ctx context.Context, pass string) ([]Info, error)
}

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the artifact database at path, creating its
// directory and schema when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating artifact directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; sqlite rejects concurrent upgrades to a write lock.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			pass TEXT NOT NULL,
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			content_type TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (pass, name, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save implements Store. The next version is computed inside the insert
// transaction so concurrent saves of one name never collide.
func (s *SQLiteStore) Save(ctx context.Context, pass, name, contentType string, data []byte) (int, error) {
	if pass == "" || name == "" {
		return 0, fmt.Errorf("pass and name are required")
	}
	if data == nil {
		data = []byte{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM artifacts WHERE pass = ? AND name = ?`,
		pass, name,
	).Scan(&version); err != nil {
		return 0, fmt.Errorf("reading latest version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO artifacts (pass, name, version, content_type, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		pass, name, version, contentType, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting %s/%s: %w", pass, name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s/%s: %w", pass, name, err)
	}
	return version, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, pass, name string, version int) (Artifact, error) {
	query := `SELECT version, content_type, data, created_at FROM artifacts
		WHERE pass = ? AND name = ? AND version = ?`
	args := []any{pass, name, version}
	if version <= 0 {
		query = `SELECT version, content_type, data, created_at FROM artifacts
			WHERE pass = ? AND name = ? ORDER BY version DESC LIMIT 1`
		args = args[:2]
	}

	a := Artifact{Pass: pass, Name: name}
	var created string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&a.Version, &a.ContentType, &a.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, fmt.Errorf("%s/%s: %w", pass, name, ErrNotFound)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("loading %s/%s: %w", pass, name, err)
	}
	a.CreatedAt = parseTime(created)
	return a, nil
}

// List implements Store. Entries are ordered by pass, name and version.
func (s *SQLiteStore) List(ctx context.Context, pass string) ([]Info, error) {
	query := `SELECT pass, name, version, content_type, length(data), created_at FROM artifacts`
	var args []any
	if pass != "" {
		query += ` WHERE pass = ?`
		args = append(args, pass)
	}
	query += ` ORDER BY pass, name, version`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var created string
		if err := rows.Scan(&info.Pass, &info.Name, &info.Version, &info.ContentType, &info.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning artifact row: %w", err)
		}
		info.CreatedAt = parseTime(created)
		out = append(out, info)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
