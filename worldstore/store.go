// Package worldstore keeps a named library of Karel worlds in SQLite, so
// hosts can stash starting worlds and reload them by name.
package worldstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/atvexy/karel/vm/snapshot"
)

// ErrWorldNotFound indicates the requested world doesn't exist.
var ErrWorldNotFound = errors.New("world not found")

// Entry describes one stored world.
type Entry struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store handles SQLite storage for world snapshots.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (creating if needed) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}

	// Writers back off instead of failing when the file is shared.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("busy_timeout pragma: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS worlds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		snapshot BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("worlds schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a world under name, replacing any previous snapshot with that
// name. Returns the entry id.
func (s *Store) Save(name string, w *snapshot.World) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := snapshot.MarshalWorld(w)
	if err != nil {
		return "", fmt.Errorf("encoding world: %w", err)
	}

	now := time.Now().UTC()

	var id string
	err = s.db.QueryRow("SELECT id FROM worlds WHERE name = ?", name).Scan(&id)
	switch {
	case err == nil:
		if _, err := s.db.Exec(
			"UPDATE worlds SET snapshot = ?, updated_at = ? WHERE id = ?",
			data, now, id,
		); err != nil {
			return "", fmt.Errorf("updating world %q: %w", name, err)
		}
		return id, nil
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		if _, err := s.db.Exec(
			"INSERT INTO worlds (id, name, snapshot, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			id, name, data, now, now,
		); err != nil {
			return "", fmt.Errorf("inserting world %q: %w", name, err)
		}
		return id, nil
	default:
		return "", fmt.Errorf("looking up world %q: %w", name, err)
	}
}

// Load returns the world stored under name.
func (s *Store) Load(name string) (*snapshot.World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow("SELECT snapshot FROM worlds WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading world %q: %w", name, err)
	}
	return snapshot.UnmarshalWorld(data)
}

// List returns all stored worlds in name order.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT id, name, created_at, updated_at FROM worlds ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing worlds: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning world row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the world stored under name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM worlds WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting world %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWorldNotFound
	}
	return nil
}
