// Package store persists the event collection as a JSON document. One
// operator, one file, no locking: concurrent writers are unsupported and
// last writer wins.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stellarlinkco/clawscope/internal/event"
)

// ErrNotExtracted marks a missing collection file. Commands that need an
// existing collection turn it into a directive to run extraction first.
var ErrNotExtracted = errors.New("no event collection found; run 'clawscope extract' first")

const collectionFile = "collection.json"

type Store struct {
	dataDir string
}

func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// Path is the canonical collection location.
func (s *Store) Path() string {
	return filepath.Join(s.dataDir, collectionFile)
}

// SlimPath is where the slim export variant is written.
func (s *Store) SlimPath() string {
	return filepath.Join(s.dataDir, "collection.slim.json")
}

// Load reads the persisted collection.
func (s *Store) Load() (*event.Collection, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExtracted
		}
		return nil, fmt.Errorf("read collection: %w", err)
	}

	var col event.Collection
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}
	return &col, nil
}

// LoadIfExists returns nil (not an error) when no collection has been
// written yet; the merge policy fails open on a first run.
func (s *Store) LoadIfExists() (*event.Collection, error) {
	col, err := s.Load()
	if errors.Is(err, ErrNotExtracted) {
		return nil, nil
	}
	return col, err
}

// Save writes the collection atomically: temp file in the same
// directory, then rename. Checkpoint saves during enrichment reuse this.
func (s *Store) Save(col *event.Collection) error {
	return s.WriteJSON(s.Path(), col)
}

// SaveSlim writes the slim variant of the collection.
func (s *Store) SaveSlim(col *event.Collection) error {
	return s.WriteJSON(s.SlimPath(), col.Slim())
}

// WriteJSON atomically writes any value as indented JSON.
func (s *Store) WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".collection-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace collection: %w", err)
	}
	return nil
}
