// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/moviequiz/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for statistics and round history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stats_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			correct INTEGER NOT NULL,
			total INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_finished_at ON rounds(finished_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Get returns the stored values for keys. Missing keys are absent from the result.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	return getValues(ctx, s.db, keys)
}

// Set upserts all values in a single transaction.
func (s *Store) Set(ctx context.Context, values map[string]string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if err = putValues(ctx, tx, values); err != nil {
		return err
	}
	return tx.Commit()
}

// Update reads keys and writes the values returned by fn in one write
// transaction. BEGIN IMMEDIATE takes the write lock before the read, so
// other connections and processes wait on busy_timeout instead of racing.
func (s *Store) Update(ctx context.Context, keys []string, fn func(map[string]string) (map[string]string, error)) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			// Best-effort connection release.
			_ = cerr
		}
	}()

	if _, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if _, rerr := conn.ExecContext(context.Background(), "ROLLBACK"); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	current, err := getValues(ctx, conn, keys)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if err = putValues(ctx, conn, next); err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func getValues(ctx context.Context, q querier, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		placeholders[i] = "?"
		args[i] = key
	}
	query := fmt.Sprintf(`SELECT key, value FROM stats_kv WHERE key IN (%s)`, strings.Join(placeholders, ","))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func putValues(ctx context.Context, q querier, values map[string]string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for key, value := range values {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO stats_kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now); err != nil {
			return err
		}
	}
	return nil
}

// AppendRound stores a finished round.
func (s *Store) AppendRound(ctx context.Context, round model.RoundRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (id, correct, total, accuracy, finished_at) VALUES (?, ?, ?, ?, ?)`,
		round.ID,
		round.Correct,
		round.Total,
		round.Accuracy,
		round.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListRounds returns up to limit most recent rounds, oldest first. limit <= 0 returns all.
func (s *Store) ListRounds(ctx context.Context, limit int) ([]model.RoundRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, correct, total, accuracy, finished_at FROM (
			SELECT id, correct, total, accuracy, finished_at
			FROM rounds
			ORDER BY finished_at DESC
			LIMIT ?
		) ORDER BY finished_at ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var rounds []model.RoundRecord
	for rows.Next() {
		var r model.RoundRecord
		var finishedAt string
		if err := rows.Scan(&r.ID, &r.Correct, &r.Total, &r.Accuracy, &finishedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, finishedAt)
		if err != nil {
			return nil, err
		}
		r.FinishedAt = parsed
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}
