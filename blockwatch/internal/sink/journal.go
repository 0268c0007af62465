package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mbaranovski/editor.js/blockwatch/mutation"
	"github.com/mbaranovski/editor.js/blockwatch/internal/render"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS blockwatch_batches (
    id          TEXT PRIMARY KEY,
    seq         INTEGER NOT NULL,
    payload     BLOB NOT NULL,
    digest      TEXT NOT NULL DEFAULT '',
    updates     INTEGER NOT NULL,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blockwatch_batches_seq ON blockwatch_batches (seq);
`

// Journal persists every batch to SQLite alongside a markdown digest, giving
// an inspectable edit history without replaying JSON payloads by hand.
type Journal struct {
	db    *sql.DB
	owned bool
}

// OpenJournal opens (or creates) a journal database at path and applies the
// schema. The production-safe pragmas match the rest of the ecosystem:
// WAL journal, busy timeout, NORMAL synchronous.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db, owned: true}, nil
}

// NewJournal wraps an existing database handle. The caller keeps ownership;
// Close will not close db. EnsureJournalTable must have been run.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// EnsureJournalTable creates the journal table on an externally-owned handle.
func EnsureJournalTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, journalSchema)
	return err
}

func (j *Journal) Send(ctx context.Context, batch mutation.Batch) error {
	payload, err := mutation.MarshalBatch(&batch)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO blockwatch_batches (id, seq, payload, digest, updates, created_at)
		VALUES (?,?,?,?,?,?)`,
		batch.ID, batch.Seq, payload, render.DigestBatch(batch), len(batch.Updates), batch.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Recent returns the n most recent batches, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]mutation.Batch, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT payload FROM blockwatch_batches ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []mutation.Batch
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		b, err := mutation.UnmarshalBatch(payload)
		if err != nil {
			return nil, fmt.Errorf("journal: unmarshal: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	if j.owned {
		return j.db.Close()
	}
	return nil
}
