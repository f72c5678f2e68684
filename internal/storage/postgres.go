package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second

	pgUndefinedTable = "42P01"
)

var ErrSchemaMissing = errors.New("session_state table missing")

// PostgresStorage keeps one row per state key:
//
//	CREATE TABLE session_state (
//	    key        TEXT PRIMARY KEY,
//	    payload    JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStorage) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT payload
			FROM session_state
			WHERE key = $1
		`, key).Scan(&raw)
	})

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if isUndefinedTable(err) {
		return nil, false, ErrSchemaMissing
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *PostgresStorage) Save(ctx context.Context, key string, payload []byte) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO session_state (key, payload, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE
			SET payload = EXCLUDED.payload, updated_at = now()
		`, key, payload)

		if isUndefinedTable(err) {
			return ErrSchemaMissing
		}
		return err
	})
}

func (s *PostgresStorage) Delete(ctx context.Context, key string) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM session_state WHERE key = $1`, key)
		if isUndefinedTable(err) {
			return ErrSchemaMissing
		}
		return err
	})
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
