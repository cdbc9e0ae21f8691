// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive snapshots the knowledge store into a SQLite database
// with a full-text index, so large stores can be searched and exported
// without walking the in-memory graph.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/brainsim/internal/uks"
)

const dbFile = "brainsim.db"

// Config carries the archive settings.
type Config struct {
	// Dir is the directory holding the database and export files.
	Dir string
	// MaxResults limits search result counts. Zero defaults to 20.
	MaxResults int
}

// Archive manages the statement snapshot database.
type Archive struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// New opens or creates the snapshot database at cfg.Dir/brainsim.db,
// creating the schema if it does not exist.
func New(cfg Config) (*Archive, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	a := &Archive{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := a.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return a, nil
}

// Close releases the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS statements (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			reltype TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			weight REAL NOT NULL DEFAULT 1.0,
			ttl REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_statements_source ON statements(source)`,
		`CREATE INDEX IF NOT EXISTS idx_statements_reltype ON statements(reltype)`,
		`CREATE TABLE IF NOT EXISTS sync_status (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			revision INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := a.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='statements_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE statements_fts USING fts5(source, reltype, target, content=statements, content_rowid=rowid)`,
			`CREATE TRIGGER statements_ai AFTER INSERT ON statements BEGIN
				INSERT INTO statements_fts(rowid, source, reltype, target)
				VALUES (new.rowid, new.source, new.reltype, new.target);
			END`,
			`CREATE TRIGGER statements_ad AFTER DELETE ON statements BEGIN
				INSERT INTO statements_fts(statements_fts, rowid, source, reltype, target)
				VALUES('delete', old.rowid, old.source, old.reltype, old.target);
			END`,
			`CREATE TRIGGER statements_au AFTER UPDATE ON statements BEGIN
				INSERT INTO statements_fts(statements_fts, rowid, source, reltype, target)
				VALUES('delete', old.rowid, old.source, old.reltype, old.target);
				INSERT INTO statements_fts(rowid, source, reltype, target)
				VALUES (new.rowid, new.source, new.reltype, new.target);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := a.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Sync replaces the snapshot with the store's current statements. It
// compares the store revision against the last synced one and skips
// the rewrite when nothing has changed. It returns the number of
// statements archived, zero on a skip.
func (a *Archive) Sync(ctx context.Context, store *uks.Store, w io.Writer) (int, error) {
	rev := store.Revision()

	var stored int64
	err := a.db.QueryRowContext(ctx,
		`SELECT revision FROM sync_status WHERE id = 1`,
	).Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("reading sync status: %w", err)
	}
	if err == nil && uint64(stored) == rev {
		fmt.Fprintf(w, "skipped: archive at revision %d\n", rev)
		return 0, nil
	}

	stmts := store.ExportStatements()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM statements`); err != nil {
		return 0, fmt.Errorf("clearing old statements: %w", err)
	}

	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO statements (source, reltype, target, weight, ttl) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer ins.Close()

	for _, st := range stmts {
		if _, err := ins.ExecContext(ctx, st.Source, st.RelType, st.Target, st.Weight, st.TTL); err != nil {
			return 0, fmt.Errorf("inserting statement %s %s: %w", st.Source, st.RelType, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_status (id, revision) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET revision=excluded.revision`,
		int64(rev),
	); err != nil {
		return 0, fmt.Errorf("updating sync status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing snapshot: %w", err)
	}

	fmt.Fprintf(w, "archived %d statements (revision %d)\n", len(stmts), rev)
	return len(stmts), nil
}
