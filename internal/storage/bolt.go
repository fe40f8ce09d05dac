package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// DefaultFileName is the bolt database file inside the state directory.
const DefaultFileName = "state.db"

var sessionBucket = []byte("session")

// BoltStore keeps the display name in a bbolt database.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database at path. The file is locked while
// open, so a second client on the same state directory fails fast instead of
// blocking.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrapf(err, "failed to create state directory for %s", path)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open state database %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize state database")
	}

	return &BoltStore{db: db}, nil
}

// Load implements Store.
func (s *BoltStore) Load() (string, bool, error) {
	var (
		name  string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(DisplayNameKey))
		if v == nil {
			return nil
		}
		name = string(v)
		found = true
		return nil
	})
	if err != nil {
		return "", false, errors.Wrap(err, "failed to load display name")
	}
	return name, found, nil
}

// Save implements Store.
func (s *BoltStore) Save(name string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(DisplayNameKey), []byte(name))
	})
	return errors.Wrap(err, "failed to save display name")
}

// Clear implements Store.
func (s *BoltStore) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(DisplayNameKey))
	})
	return errors.Wrap(err, "failed to clear display name")
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
