package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store names for the logical collections kept in the cache.
const (
	StoreTeams         = "teams"
	StoreNominations   = "nominations"
	StoreUserVotes     = "user_votes"
	StoreResources     = "resources"
	StoreNotifications = "notifications"
	StoreProfile       = "profile"
)

// ErrMiss is returned by Get when no value has been written for a store yet.
var ErrMiss = errors.New("cache miss")

// Cache is the local persisted key-value store. It survives process restarts
// and is read at startup to pre-populate collections before the first
// successful remote fetch.
type Cache struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    store TEXT PRIMARY KEY,
    payload BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// Open opens (or creates) the cache file at path
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get loads the payload for a store into v. Returns ErrMiss when the store
// has never been written.
func (c *Cache) Get(store string, v interface{}) error {
	var payload []byte
	err := c.db.QueryRow(`SELECT payload FROM kv WHERE store = ?`, store).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMiss
		}
		return fmt.Errorf("failed to read cache store %s: %w", store, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode cache store %s: %w", store, err)
	}
	return nil
}

// Put writes the payload for a store, replacing any previous value
func (c *Cache) Put(store string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache store %s: %w", store, err)
	}
	_, err = c.db.Exec(`
		INSERT INTO kv (store, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(store) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, store, payload, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write cache store %s: %w", store, err)
	}
	return nil
}

// Delete removes a store's payload
func (c *Cache) Delete(store string) error {
	if _, err := c.db.Exec(`DELETE FROM kv WHERE store = ?`, store); err != nil {
		return fmt.Errorf("failed to delete cache store %s: %w", store, err)
	}
	return nil
}

// Close closes the underlying database
func (c *Cache) Close() error {
	return c.db.Close()
}
