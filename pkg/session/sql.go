package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	// Drivers registered for the supported DSNs.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists sessions in a relational database. Supported driver
// names are "sqlite3" and "postgres". Conversations and run records are
// stored as JSON columns; a save replaces the whole session row in one
// transaction.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQLStore opens the database and creates the schema if missing.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	s := &SQLStore{db: db, postgres: driver == "postgres"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			conversation TEXT NOT NULL,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			session_id TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			status TEXT NOT NULL,
			record TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS run_results_session_idx
			ON run_results (session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to the $n form postgres requires.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Load(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT owner, conversation, metadata, created_at, last_updated
			FROM sessions WHERE id = ?`), id)

	var owner, conversation string
	var metadata sql.NullString
	var createdAt, lastUpdated time.Time
	err := row.Scan(&owner, &conversation, &metadata, &createdAt, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", id, err)
	}

	sess := &Session{
		ID:          id,
		Owner:       owner,
		CreatedAt:   createdAt,
		LastUpdated: lastUpdated,
	}
	if err := json.Unmarshal([]byte(conversation), &sess.Turns); err != nil {
		return nil, fmt.Errorf("failed to parse conversation for %q: %w", id, err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &sess.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse metadata for %q: %w", id, err)
		}
	}
	return sess, nil
}

func (s *SQLStore) Save(ctx context.Context, sess *Session) error {
	conversation, err := json.Marshal(sess.Turns)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation for %q: %w", sess.ID, err)
	}
	var metadata []byte
	if len(sess.Metadata) > 0 {
		if metadata, err = json.Marshal(sess.Metadata); err != nil {
			return fmt.Errorf("failed to marshal metadata for %q: %w", sess.ID, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM sessions WHERE id = ?`), sess.ID); err != nil {
		return fmt.Errorf("failed to replace session %q: %w", sess.ID, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO sessions (id, owner, conversation, metadata, created_at, last_updated)
			VALUES (?, ?, ?, ?, ?, ?)`),
		sess.ID, sess.Owner, string(conversation), string(metadata),
		sess.CreatedAt, sess.LastUpdated,
	); err != nil {
		return fmt.Errorf("failed to save session %q: %w", sess.ID, err)
	}
	return tx.Commit()
}

func (s *SQLStore) SaveResult(ctx context.Context, id string, rec *RunRecord) error {
	record, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run record for %q: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO run_results (session_id, started_at, status, record)
			VALUES (?, ?, ?, ?)`),
		id, rec.StartedAt, rec.Status, string(record),
	); err != nil {
		return fmt.Errorf("failed to save run record for %q: %w", id, err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM run_results WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete run records for %q: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete session %q: %w", id, err)
	}
	return tx.Commit()
}

var _ Store = (*SQLStore)(nil)
