package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/kiosk/internal/records"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS student_records (
    position INTEGER PRIMARY KEY,
    identifier INTEGER NOT NULL,
    name TEXT NOT NULL,
    category TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_student_records_identifier ON student_records(identifier);

CREATE TABLE IF NOT EXISTS student_snapshots (
    id SMALLINT PRIMARY KEY CHECK (id = 1),
    record_count INTEGER NOT NULL,
    saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PgxPool is the subset of *pgxpool.Pool the backend needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend stores the snapshot as rows in PostgreSQL.
type PostgresBackend struct {
	Pool    PgxPool
	Timeout time.Duration
}

// OpenPostgres connects to databaseURL and applies the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresBackend, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	b := NewPostgresBackend(pool)
	if err := b.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return b, pool, nil
}

// NewPostgresBackend wraps an existing pool.
func NewPostgresBackend(pool PgxPool) *PostgresBackend {
	return &PostgresBackend{Pool: pool, Timeout: 5 * time.Second}
}

// Migrate creates the snapshot tables if they are missing.
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if _, err := b.Pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Load returns the rows ordered by position.
func (b *PostgresBackend) Load(ctx context.Context) ([]records.Record, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	var count int
	err := b.Pool.QueryRow(ctx, `SELECT record_count FROM student_snapshots WHERE id = 1`).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, records.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}

	rows, err := b.Pool.Query(ctx, `
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

// Save replaces every row in one transaction, bulk loading with COPY.
func (b *PostgresBackend) Save(ctx context.Context, recs []records.Record) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM student_records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{i, r.ID, r.Name, r.Category}
	}
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"student_records"},
		[]string{"position", "identifier", "name", "category"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy records: %w", err)
	}
	if copied != int64(len(recs)) {
		return fmt.Errorf("copied %d of %d records", copied, len(recs))
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO student_snapshots (id, record_count, saved_at) VALUES (1, $1, now())
        ON CONFLICT (id) DO UPDATE SET record_count = EXCLUDED.record_count, saved_at = EXCLUDED.saved_at
    `, len(recs))
	if err != nil {
		return fmt.Errorf("failed to update snapshot header: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (b *PostgresBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.Timeout)
}
