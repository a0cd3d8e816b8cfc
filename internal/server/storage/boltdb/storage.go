// Package boltdb implements the server storage as JSON documents in bbolt
// with secondary-index buckets for every lookup path.
package boltdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
)

var (
	// documents
	bucketUsers    = []byte("users")
	bucketSessions = []byte("sessions")

	// indexes: key -> document id
	bucketUsersByEmail      = []byte("users_by_email")
	bucketUsersByReset      = []byte("users_by_reset")
	bucketSessionsByAccess  = []byte("sessions_by_access")
	bucketSessionsByRefresh = []byte("sessions_by_refresh")
	bucketSessionsByUser    = []byte("sessions_by_user") // userID \x00 sessionID -> nil
)

var allBuckets = [][]byte{
	bucketUsers,
	bucketSessions,
	bucketUsersByEmail,
	bucketUsersByReset,
	bucketSessionsByAccess,
	bucketSessionsByRefresh,
	bucketSessionsByUser,
}

var errBucketMissing = errors.New("bucket not found")

const userSessionKeySeparator = byte(0)

// Storage represents BoltDB storage implementation for the server
type Storage struct {
	db *bbolt.DB
}

var _ storage.Storage = (*Storage)(nil)

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is open.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers) == nil {
			return fmt.Errorf("users %w", errBucketMissing)
		}
		return nil
	})
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s %w", name, errBucketMissing)
	}
	return b, nil
}

func userSessionKey(userID, sessionID string) []byte {
	key := make([]byte, 0, len(userID)+1+len(sessionID))
	key = append(key, userID...)
	key = append(key, userSessionKeySeparator)
	return append(key, sessionID...)
}

func userSessionPrefix(userID string) []byte {
	key := make([]byte, 0, len(userID)+1)
	key = append(key, userID...)
	return append(key, userSessionKeySeparator)
}
