// Package boltdb caches the client session in a local bbolt file.
package boltdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/storage"
)

// The session bucket holds two records: the account and the token pair.
// They are written separately so a rotation never touches the account.
var (
	bucketSession = []byte("session")

	keyAccount = []byte("account")
	keyTokens  = []byte("tokens")
)

var errNoBucket = errors.New("session bucket not found")

// Storage is the bbolt session cache of the CLI client.
type Storage struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ storage.AuthStorage = (*Storage)(nil)

// Option configures a Storage.
type Option func(*Storage)

// WithClock overrides the time source of IsAuthenticated.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// New opens (or creates) the cache file at dbPath.
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	// another client run holds the file lock
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session cache: %w", err)
	}

	s := &Storage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the cache file. Closing twice is a no-op.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSession); err != nil {
			return fmt.Errorf("failed to create session bucket: %w", err)
		}
		return nil
	})
}

// view и update открывают транзакцию над session bucket
func (s *Storage) view(fn func(b *bbolt.Bucket) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if b == nil {
			return errNoBucket
		}
		return fn(b)
	})
}

func (s *Storage) update(fn func(b *bbolt.Bucket) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if b == nil {
			return errNoBucket
		}
		return fn(b)
	})
}
