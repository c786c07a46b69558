package bolt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"
)

const (
	cartBucket     = "guest_carts"
	wishlistBucket = "wishlists"

	openTimeout = 3 * time.Second
)

// Store owns the embedded bbolt database backing device-local state. A single
// Store instance is shared by all repositories; bbolt serialises writers.
type Store struct {
	db *bbolt.DB
}

// Open initialises the database file, creating parent directories and the
// expected buckets when absent.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("bolt store: path is required")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{cartBucket, wishlistBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is usable, for readiness checks.
func (s *Store) Ping() error {
	if s == nil || s.db == nil {
		return errors.New("bolt store: not initialised")
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(cartBucket)) == nil {
			return errors.New("bolt store: cart bucket missing")
		}
		return nil
	})
}
