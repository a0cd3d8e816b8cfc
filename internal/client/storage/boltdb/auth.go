package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/storage"
)

// SaveAuth replaces the cached session.
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	return s.update(func(b *bbolt.Bucket) error {
		if err := putJSON(b, keyAccount, &auth.Account); err != nil {
			return err
		}
		return putJSON(b, keyTokens, &auth.Tokens)
	})
}

// SaveTokens swaps the token pair of the cached account.
func (s *Storage) SaveTokens(ctx context.Context, tokens *storage.Tokens) error {
	return s.update(func(b *bbolt.Bucket) error {
		if b.Get(keyAccount) == nil {
			return storage.ErrAuthNotFound
		}
		return putJSON(b, keyTokens, tokens)
	})
}

// GetAuth returns the cached session, ErrAuthNotFound when there is none.
func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	auth := &storage.AuthData{}

	err := s.view(func(b *bbolt.Bucket) error {
		if err := getJSON(b, keyAccount, &auth.Account); err != nil {
			return err
		}
		return getJSON(b, keyTokens, &auth.Tokens)
	})
	if err != nil {
		return nil, err
	}

	return auth, nil
}

// DeleteAuth forgets the session. ErrAuthNotFound if nothing was cached.
func (s *Storage) DeleteAuth(ctx context.Context) error {
	return s.update(func(b *bbolt.Bucket) error {
		if b.Get(keyAccount) == nil {
			return storage.ErrAuthNotFound
		}
		for _, key := range [][]byte{keyAccount, keyTokens} {
			if err := b.Delete(key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// IsAuthenticated reports whether a session with a live refresh token is cached.
func (s *Storage) IsAuthenticated(ctx context.Context) (bool, error) {
	auth, err := s.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return false, nil
		}
		return false, err
	}

	return !auth.RefreshExpired(s.now()), nil
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := b.Put(key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func getJSON(b *bbolt.Bucket, key []byte, v any) error {
	data := b.Get(key)
	if data == nil {
		return storage.ErrAuthNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt %s record: %w", key, err)
	}
	return nil
}
