package store

import (
	"database/sql"
)

const (
	metaCatalogHash   = "catalog_hash"
	metaCatalogSource = "catalog_source"
)

// SetMetadata upserts a key-value pair in the app_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// RecordCatalog stores the hash and source of the catalog in use and reports
// whether the hash differs from the previously recorded one. The first
// recording is not a change.
func (s *Store) RecordCatalog(hash, source string) (changed bool, err error) {
	prev, err := s.GetMetadata(metaCatalogHash)
	if err != nil {
		return false, err
	}
	if err := s.SetMetadata(metaCatalogHash, hash); err != nil {
		return false, err
	}
	if err := s.SetMetadata(metaCatalogSource, source); err != nil {
		return false, err
	}
	return prev != "" && prev != hash, nil
}

// CatalogHash returns the recorded catalog hash.
func (s *Store) CatalogHash() (string, error) {
	return s.GetMetadata(metaCatalogHash)
}
