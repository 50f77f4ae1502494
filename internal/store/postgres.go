package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresBackend keeps the snapshot document in a single JSONB row.
type PostgresBackend struct {
	db *sqlx.DB
}

// Connect opens the database and ensures the snapshot table exists.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
            id INT PRIMARY KEY,
            document JSONB NOT NULL,
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

// NewPostgresBackend wraps an open connection.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

const snapshotRowID = 1

func (b *PostgresBackend) Load(ctx context.Context) (*Snapshot, error) {
	var doc []byte
	err := b.db.GetContext(ctx, &doc, `SELECT document FROM snapshots WHERE id=$1`, snapshotRowID)
	if errors.Is(err, sql.ErrNoRows) {
		snap := Empty()
		if err := b.Save(ctx, snap); err != nil {
			return nil, err
		}
		return snap, nil
	}
	if err != nil {
		return nil, err
	}

	snap := Empty()
	if err := json.Unmarshal(doc, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.normalize()
	return snap, nil
}

func (b *PostgresBackend) Save(ctx context.Context, snap *Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `INSERT INTO snapshots (id, document, updated_at) VALUES ($1, $2, NOW())
        ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`, snapshotRowID, string(doc))
	return err
}
