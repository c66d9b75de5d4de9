package store

import (
	"database/sql"
	"errors"
)

const catalogHashKey = "catalog_hash"

// SetMetadata upserts a key-value pair.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO survey_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a key, or "" when the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM survey_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// CheckCatalog records the fingerprint of the catalog the server runs with.
// It reports changed=true when stored answers were recorded against a
// different catalog.
func (s *Store) CheckCatalog(hash string) (changed bool, err error) {
	prev, err := s.GetMetadata(catalogHashKey)
	if err != nil {
		return false, err
	}
	if err := s.SetMetadata(catalogHashKey, hash); err != nil {
		return false, err
	}
	return prev != "" && prev != hash, nil
}

// CatalogHash returns the fingerprint recorded by CheckCatalog.
func (s *Store) CatalogHash() (string, error) {
	return s.GetMetadata(catalogHashKey)
}
