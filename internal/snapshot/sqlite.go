package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/kiosk/internal/records"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS student_records (
	position INTEGER PRIMARY KEY,
	identifier INTEGER NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_student_records_identifier ON student_records(identifier);

CREATE TABLE IF NOT EXISTS student_snapshots (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	record_count INTEGER NOT NULL,
	saved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteBackend stores the snapshot as rows in a local SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	b := NewSQLiteBackend(db)
	if err := b.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewSQLiteBackend wraps an already open database.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// Migrate creates the snapshot tables if they are missing.
func (b *SQLiteBackend) Migrate(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Load returns the rows ordered by position. ErrNoSnapshot is returned
// until the first Save.
func (b *SQLiteBackend) Load(ctx context.Context) ([]records.Record, error) {
	var count int
	err := b.db.QueryRowContext(ctx, `SELECT record_count FROM student_snapshots WHERE id = 1`).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, records.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT identifier, name, category
		FROM student_records
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := make([]records.Record, 0, count)
	for rows.Next() {
		var r records.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Category); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	if len(out) != count {
		return nil, fmt.Errorf("snapshot header expects %d records, found %d", count, len(out))
	}
	return out, nil
}

// Save replaces every row in a single transaction.
func (b *SQLiteBackend) Save(ctx context.Context, recs []records.Record) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM student_records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO student_records (position, identifier, name, category) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range recs {
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Name, r.Category); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", r.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO student_snapshots (id, record_count, saved_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET record_count = excluded.record_count, saved_at = excluded.saved_at
	`, len(recs))
	if err != nil {
		return fmt.Errorf("failed to update snapshot header: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
