package projcache

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// SQLiteStore persists cache entries in the projection_cache table.
// Runs against the cache-profile database: synchronous OFF, ephemeral data.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the store and its table
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	query := `
		CREATE TABLE IF NOT EXISTS projection_cache (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create projection_cache table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the payload for a key if present and not expired
func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var payload []byte
	var expiresAt int64

	err := s.db.QueryRow(
		`SELECT payload, expires_at FROM projection_cache WHERE key = ?`, key,
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if time.Now().Unix() >= expiresAt {
		return nil, false, nil
	}
	return payload, true, nil
}

// Set stores a payload, replacing any existing entry for the key
func (s *SQLiteStore) Set(key string, payload []byte, expiresAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO projection_cache (key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at
	`, key, payload, expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries that expired before now
func (s *SQLiteStore) Prune(now time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM projection_cache WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// memoryEntry is one in-memory cache record
type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-memory Store, used in tests and as a
// fallback when no cache database is configured
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get returns the payload for a key if present and not expired
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || !time.Now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.payload, true, nil
}

// Set stores a payload under a key
func (s *MemoryStore) Set(key string, payload []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{payload: payload, expiresAt: expiresAt}
	return nil
}

// Prune deletes expired entries
func (s *MemoryStore) Prune(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}
