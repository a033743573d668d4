package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mailsweep/internal/model"

	_ "modernc.org/sqlite"
)

// Manifest is the local ledger of saved attachments, backed by SQLite. Rows
// are append-only; one row per file written to disk.
type Manifest struct {
	db *sql.DB
}

// NewManifest opens (or creates) the database at the given path and runs
// migrations.
func NewManifest(dbPath string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manifest{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS exports (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id    TEXT NOT NULL,
	attachment_id TEXT NOT NULL,
	sender        TEXT NOT NULL,
	filename      TEXT NOT NULL,
	path          TEXT NOT NULL,
	size          INTEGER NOT NULL DEFAULT 0,
	email_date    TEXT NOT NULL DEFAULT '',
	saved_at      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_exports_sender ON exports(sender);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (m *Manifest) Close() error {
	return m.db.Close()
}

// Append records a batch of saved attachments in one transaction.
func (m *Manifest) Append(ctx context.Context, recs []model.ExportRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO exports (message_id, attachment_id, sender, filename, path, size, email_date, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.ExecContext(ctx,
			r.MessageID, r.AttachmentID, r.Sender, r.Filename, r.Path, r.Size,
			r.EmailDate.UTC().Format(time.RFC3339), r.SavedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Stats summarizes everything saved so far.
func (m *Manifest) Stats(ctx context.Context) (model.ExportStats, error) {
	var st model.ExportStats
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size), 0), COUNT(DISTINCT sender) FROM exports").
		Scan(&st.Files, &st.Bytes, &st.Senders)
	return st, err
}

// Recent returns the newest n export records, most recent first.
func (m *Manifest) Recent(ctx context.Context, n int) ([]model.ExportRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT message_id, attachment_id, sender, filename, path, size, email_date, saved_at
		FROM exports ORDER BY id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.ExportRecord
	for rows.Next() {
		var r model.ExportRecord
		var emailDate, savedAt string
		if err := rows.Scan(&r.MessageID, &r.AttachmentID, &r.Sender, &r.Filename, &r.Path, &r.Size, &emailDate, &savedAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, emailDate); err == nil {
			r.EmailDate = t
		}
		if t, err := time.Parse(time.RFC3339, savedAt); err == nil {
			r.SavedAt = t
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
