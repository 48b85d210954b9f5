// Package ledger maintains the durable index from company identity key to
// outcome file and status. It is the source of truth for resume: a key with
// a terminal status is never reprocessed. The ledger is rebuilt from the
// outcome directory whenever the two disagree, so a crash between an outcome
// write and the ledger update is always recoverable.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/screener-cli/internal/model"
)

// Entry maps one identity key to its outcome.
type Entry struct {
	Key       string
	Company   string
	Status    model.Status
	File      string
	UpdatedAt time.Time
}

// Ledger is a SQLite-backed index of processed companies.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at the given path and applies
// migrations.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ledger: exec %s", pragma)
		}
	}

	l := &Ledger{db: db}
	if err := l.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS ledger (
	key        TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	status     TEXT NOT NULL,
	file       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ledger_status ON ledger(status);
`

func (l *Ledger) migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "ledger: migrate")
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Put inserts or replaces the entry for an identity key. A key never maps to
// two files: the upsert replaces the previous location.
func (l *Ledger) Put(ctx context.Context, e Entry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ledger (key, company, status, file, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET company = excluded.company, status = excluded.status,
		 file = excluded.file, updated_at = excluded.updated_at`,
		e.Key, e.Company, string(e.Status), e.File, e.UpdatedAt,
	)
	return eris.Wrapf(err, "ledger: put %s", e.Key)
}

// Get returns the entry for a key, or nil if the key is unknown.
func (l *Ledger) Get(ctx context.Context, key string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT key, company, status, file, updated_at FROM ledger WHERE key = ?`, key)

	var e Entry
	var status string
	if err := row.Scan(&e.Key, &e.Company, &status, &e.File, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "ledger: get %s", key)
	}
	e.Status = model.Status(status)
	return &e, nil
}

// Delete removes the entry for a key. Used when reconciliation finds the
// entry's outcome file missing.
func (l *Ledger) Delete(ctx context.Context, key string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM ledger WHERE key = ?`, key)
	return eris.Wrapf(err, "ledger: delete %s", key)
}

// TerminalKeys returns every key whose status is terminal, with its status.
// The driver subtracts these from the work list on resume.
func (l *Ledger) TerminalKeys(ctx context.Context) (map[string]model.Status, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT key, status FROM ledger`)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query terminal keys")
	}
	defer rows.Close()

	done := make(map[string]model.Status)
	for rows.Next() {
		var key, status string
		if err := rows.Scan(&key, &status); err != nil {
			return nil, eris.Wrap(err, "ledger: scan terminal key")
		}
		if s := model.Status(status); s.Terminal() {
			done[key] = s
		}
	}
	return done, eris.Wrap(rows.Err(), "ledger: iterate terminal keys")
}

// Counts returns the number of entries per status.
func (l *Ledger) Counts(ctx context.Context) (map[model.Status]int, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM ledger GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query counts")
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "ledger: scan count")
		}
		counts[model.Status(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "ledger: iterate counts")
}

// All returns every ledger entry ordered by key.
func (l *Ledger) All(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT key, company, status, file, updated_at FROM ledger ORDER BY key`)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query all")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.Key, &e.Company, &status, &e.File, &e.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "ledger: scan entry")
		}
		e.Status = model.Status(status)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "ledger: iterate entries")
}
