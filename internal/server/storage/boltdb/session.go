package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
)

type sessionDoc struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	AccessTokenHash  string    `json:"access_token_hash"`
	RefreshTokenHash string    `json:"refresh_token_hash"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

func toSessionDoc(s *models.Session) sessionDoc {
	return sessionDoc{
		ID:               s.ID,
		UserID:           s.UserID,
		AccessTokenHash:  s.AccessTokenHash,
		RefreshTokenHash: s.RefreshTokenHash,
		ExpiresAt:        s.ExpiresAt,
		CreatedAt:        s.CreatedAt,
	}
}

func (d sessionDoc) model() *models.Session {
	return &models.Session{
		ID:               d.ID,
		UserID:           d.UserID,
		AccessTokenHash:  d.AccessTokenHash,
		RefreshTokenHash: d.RefreshTokenHash,
		ExpiresAt:        d.ExpiresAt,
		CreatedAt:        d.CreatedAt,
	}
}

type sessionBuckets struct {
	sessions, byAccess, byRefresh, byUser *bbolt.Bucket
}

func openSessionBuckets(tx *bbolt.Tx) (*sessionBuckets, error) {
	var (
		b   sessionBuckets
		err error
	)
	if b.sessions, err = bucket(tx, bucketSessions); err != nil {
		return nil, err
	}
	if b.byAccess, err = bucket(tx, bucketSessionsByAccess); err != nil {
		return nil, err
	}
	if b.byRefresh, err = bucket(tx, bucketSessionsByRefresh); err != nil {
		return nil, err
	}
	if b.byUser, err = bucket(tx, bucketSessionsByUser); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *sessionBuckets) get(id []byte) (*models.Session, error) {
	data := b.sessions.Get(id)
	if data == nil {
		return nil, storage.ErrSessionNotFound
	}

	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return doc.model(), nil
}

func (b *sessionBuckets) put(s *models.Session) error {
	data, err := json.Marshal(toSessionDoc(s))
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := b.sessions.Put([]byte(s.ID), data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := b.byAccess.Put([]byte(s.AccessTokenHash), []byte(s.ID)); err != nil {
		return fmt.Errorf("failed to index access token: %w", err)
	}
	if err := b.byRefresh.Put([]byte(s.RefreshTokenHash), []byte(s.ID)); err != nil {
		return fmt.Errorf("failed to index refresh token: %w", err)
	}
	if err := b.byUser.Put(userSessionKey(s.UserID, s.ID), nil); err != nil {
		return fmt.Errorf("failed to index user session: %w", err)
	}
	return nil
}

func (b *sessionBuckets) delete(s *models.Session) error {
	if err := b.sessions.Delete([]byte(s.ID)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := b.byAccess.Delete([]byte(s.AccessTokenHash)); err != nil {
		return fmt.Errorf("failed to drop access index: %w", err)
	}
	if err := b.byRefresh.Delete([]byte(s.RefreshTokenHash)); err != nil {
		return fmt.Errorf("failed to drop refresh index: %w", err)
	}
	if err := b.byUser.Delete(userSessionKey(s.UserID, s.ID)); err != nil {
		return fmt.Errorf("failed to drop user index: %w", err)
	}
	return nil
}

// userSessionIDs collects session ids of a user. Keys are copied because
// bbolt memory is only valid inside the transaction and mutations invalidate cursors.
func (b *sessionBuckets) userSessionIDs(userID string) [][]byte {
	prefix := userSessionPrefix(userID)

	var ids [][]byte
	c := b.byUser.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		ids = append(ids, bytes.Clone(k[len(prefix):]))
	}
	return ids
}

func (b *sessionBuckets) deleteUserSessions(userID string) (int, error) {
	ids := b.userSessionIDs(userID)
	for _, id := range ids {
		s, err := b.get(id)
		if err != nil {
			return 0, err
		}
		if err := b.delete(s); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// CreateSession stores a new session
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := getUser(tx, session.UserID); err != nil {
			return fmt.Errorf("session owner: %w", err)
		}

		b, err := openSessionBuckets(tx)
		if err != nil {
			return err
		}
		return b.put(session)
	})
}

// GetSessionByAccessToken retrieves session with its user by access token digest
func (s *Storage) GetSessionByAccessToken(ctx context.Context, accessHash string) (*models.Session, error) {
	return s.getSessionByIndex(func(b *sessionBuckets) *bbolt.Bucket { return b.byAccess }, accessHash)
}

// GetSessionByRefreshToken retrieves session with its user by refresh token digest
func (s *Storage) GetSessionByRefreshToken(ctx context.Context, refreshHash string) (*models.Session, error) {
	return s.getSessionByIndex(func(b *sessionBuckets) *bbolt.Bucket { return b.byRefresh }, refreshHash)
}

func (s *Storage) getSessionByIndex(index func(*sessionBuckets) *bbolt.Bucket, key string) (*models.Session, error) {
	var session *models.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := openSessionBuckets(tx)
		if err != nil {
			return err
		}

		id := index(b).Get([]byte(key))
		if id == nil {
			return storage.ErrSessionNotFound
		}

		session, err = b.get(id)
		if err != nil {
			return err
		}

		session.User, err = getUser(tx, session.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ReplaceSession swaps the token pair of the session holding oldRefreshHash.
// bbolt serializes write transactions, so only one caller finds the old hash.
func (s *Storage) ReplaceSession(ctx context.Context, oldRefreshHash string, session *models.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := openSessionBuckets(tx)
		if err != nil {
			return err
		}

		id := b.byRefresh.Get([]byte(oldRefreshHash))
		if id == nil {
			return storage.ErrSessionNotFound
		}

		old, err := b.get(id)
		if err != nil {
			return err
		}
		if err := b.delete(old); err != nil {
			return err
		}

		next := *old
		next.AccessTokenHash = session.AccessTokenHash
		next.RefreshTokenHash = session.RefreshTokenHash
		next.ExpiresAt = session.ExpiresAt
		next.User = nil

		return b.put(&next)
	})
}

// GetUserSessions retrieves all sessions of a user, newest first
func (s *Storage) GetUserSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	var sessions []*models.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := openSessionBuckets(tx)
		if err != nil {
			return err
		}

		for _, id := range b.userSessionIDs(userID) {
			session, err := b.get(id)
			if err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// DeleteSessionByAccessToken deletes the session holding the access token digest
func (s *Storage) DeleteSessionByAccessToken(ctx context.Context, accessHash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := openSessionBuckets(tx)
		if err != nil {
			return err
		}

		id := b.byAccess.Get([]byte(accessHash))
		if id == nil {
			return nil
		}

		session, err := b.get(id)
		if err != nil {
			return err
		}
		return b.delete(session)
	})
}

// DeleteUserSessions deletes all sessions of a user
func (s *Storage) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := openSessionBuckets(tx)
		if err != nil {
			return err
		}
		n, err = b.deleteUserSessions(userID)
		return err
	})
	return n, err
}

// DeleteExpiredSessions removes sessions whose refresh token expired before now
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := openSessionBuckets(tx)
		if err != nil {
			return err
		}

		var expired []*models.Session
		err = b.sessions.ForEach(func(_, v []byte) error {
			var doc sessionDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			if doc.ExpiresAt.Before(now) {
				expired = append(expired, doc.model())
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, session := range expired {
			if err := b.delete(session); err != nil {
				return err
			}
		}
		n = len(expired)
		return nil
	})
	return n, err
}

// ResetUserCredentials updates the user, drops all of its sessions and stores
// the replacement session in one write transaction.
func (s *Storage) ResetUserCredentials(ctx context.Context, user *models.User, session *models.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := updateUser(tx, user); err != nil {
			return err
		}

		b, err := openSessionBuckets(tx)
		if err != nil {
			return err
		}
		if _, err := b.deleteUserSessions(user.ID); err != nil {
			return err
		}

		if session == nil {
			return nil
		}
		return b.put(session)
	})
}
