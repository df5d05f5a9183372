// Package localstore persists per-search-id serialized search objects
// across sessions, the client-local equivalent of browser local storage.
// Searches are stored as JSON in a single sqlite table keyed by the
// caller-supplied search id.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS saved_search (
	search_id  TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// ErrNotFound is returned by GetSearch for an unknown search id.
var ErrNotFound = errors.New("localstore: search not found")

// Store is a sqlite-backed saved-search store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at dsn. The caller owns Close.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating local store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SetSearch serializes search under searchID, replacing any previous value.
func (s *Store) SetSearch(ctx context.Context, searchID string, search map[string]string) error {
	payload, err := json.Marshal(search)
	if err != nil {
		return fmt.Errorf("serializing search %q: %w", searchID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saved_search (search_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(search_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		searchID, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving search %q: %w", searchID, err)
	}
	return nil
}

// GetSearch returns the search stored under searchID.
func (s *Store) GetSearch(ctx context.Context, searchID string) (map[string]string, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM saved_search WHERE search_id = ?`, searchID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading search %q: %w", searchID, err)
	}
	var search map[string]string
	if err := json.Unmarshal([]byte(payload), &search); err != nil {
		return nil, fmt.Errorf("decoding search %q: %w", searchID, err)
	}
	return search, nil
}
