// Package bbolt provides a BoltDB-backed settings store with one bucket per
// namespace.
package bbolt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
	"go.etcd.io/bbolt"
)

// Store implements settings.Store on BoltDB.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the stored value or settings.ErrNotFound.
func (s *Store) Get(ctx context.Context, namespace, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.db == nil {
		return "", fmt.Errorf("storage is not configured")
	}

	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return settings.ErrNotFound
		}
		payload := bucket.Get([]byte(key))
		if payload == nil {
			return settings.ErrNotFound
		}
		value = string(payload)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s.%s: %w", namespace, key, err)
	}
	return value, nil
}

// Set stores value, creating the namespace bucket on first use.
func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(key) == "" {
		return fmt.Errorf("namespace and key are required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("create %s bucket: %w", namespace, err)
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

var _ settings.Store = (*Store)(nil)
