// Package cache is a sqlite-backed memo of enrichment results, keyed by
// the annotated text. Re-running a pass over unchanged events hits the
// cache instead of the remote service, which keeps interrupted or
// repeated enrichment runs cheap.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Result kinds.
const (
	KindSummary    = "summary"
	KindModSummary = "modSummary"
	KindSentiment  = "sentiment"
	KindEmbedding  = "embedding"
)

type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	c := &Cache{db: db}
	if err := c.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := c.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (c *Cache) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS enrichment (
			kind TEXT NOT NULL,
			model TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			result TEXT NOT NULL DEFAULT '',
			vector BLOB,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (kind, model, text_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_enrichment_created ON enrichment(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("init cache schema: %w", err)
		}
	}
	return nil
}

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GetText looks up a cached text result (summary, sentiment label).
func (c *Cache) GetText(kind, model, text string) (string, bool, error) {
	row := c.db.QueryRow(`
		SELECT result FROM enrichment
		WHERE kind = ? AND model = ? AND text_hash = ?
	`, kind, model, textHash(text))

	var result string
	if err := row.Scan(&result); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	return result, true, nil
}

// PutText stores a text result, replacing any prior entry.
func (c *Cache) PutText(kind, model, text, result string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO enrichment (kind, model, text_hash, result)
		VALUES (?, ?, ?, ?)
	`, kind, model, textHash(text), result)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// GetVector looks up a cached embedding.
func (c *Cache) GetVector(model, text string) ([]float32, bool, error) {
	row := c.db.QueryRow(`
		SELECT vector FROM enrichment
		WHERE kind = ? AND model = ? AND text_hash = ?
	`, KindEmbedding, model, textHash(text))

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get vector: %w", err)
	}
	vec, err := DecodeVector(blob)
	if err != nil {
		return nil, false, fmt.Errorf("cache get vector: %w", err)
	}
	return vec, true, nil
}

// PutVector stores an embedding, replacing any prior entry.
func (c *Cache) PutVector(model, text string, vector []float32) error {
	blob, err := EncodeVector(vector)
	if err != nil {
		return fmt.Errorf("cache put vector: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO enrichment (kind, model, text_hash, vector)
		VALUES (?, ?, ?, ?)
	`, KindEmbedding, model, textHash(text), blob)
	if err != nil {
		return fmt.Errorf("cache put vector: %w", err)
	}
	return nil
}
