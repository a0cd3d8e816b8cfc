package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
)

func TestSessionStorage_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s)
	session := newTestSession(user.ID, time.Now().Add(time.Hour))
	require.NoError(t, s.CreateSession(ctx, session))

	byAccess, err := s.GetSessionByAccessToken(ctx, session.AccessTokenHash)
	require.NoError(t, err)
	assert.Equal(t, session.ID, byAccess.ID)
	assert.Equal(t, user.ID, byAccess.UserID)
	assert.Equal(t, session.RefreshTokenHash, byAccess.RefreshTokenHash)
	assert.WithinDuration(t, session.ExpiresAt, byAccess.ExpiresAt, time.Millisecond)
	require.NotNil(t, byAccess.User, "user must be eager-loaded")
	assert.Equal(t, user.Email, byAccess.User.Email)

	byRefresh, err := s.GetSessionByRefreshToken(ctx, session.RefreshTokenHash)
	require.NoError(t, err)
	assert.Equal(t, session.ID, byRefresh.ID)
	require.NotNil(t, byRefresh.User)

	_, err = s.GetSessionByAccessToken(ctx, session.RefreshTokenHash)
	require.ErrorIs(t, err, storage.ErrSessionNotFound)

	_, err = s.GetSessionByRefreshToken(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestSessionStorage_CreateSession_UnknownUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.CreateSession(ctx, newTestSession(uuid.New().String(), time.Now().Add(time.Hour)))
	require.Error(t, err, "foreign key must be enforced")
}

func TestSessionStorage_MultipleSessionsPerUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s)
	other := createTestUser(t, ctx, s)

	s1 := newTestSession(user.ID, time.Now().Add(time.Hour))
	s2 := newTestSession(user.ID, time.Now().Add(time.Hour))
	s2.CreatedAt = s1.CreatedAt.Add(time.Second)
	s3 := newTestSession(other.ID, time.Now().Add(time.Hour))
	for _, sess := range []*models.Session{s1, s2, s3} {
		require.NoError(t, s.CreateSession(ctx, sess))
	}

	sessions, err := s.GetUserSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, s2.ID, sessions[0].ID, "newest first")
	assert.Equal(t, s1.ID, sessions[1].ID)

	// logout of one device leaves the other intact
	require.NoError(t, s.DeleteSessionByAccessToken(ctx, s1.AccessTokenHash))
	_, err = s.GetSessionByAccessToken(ctx, s1.AccessTokenHash)
	require.ErrorIs(t, err, storage.ErrSessionNotFound)
	_, err = s.GetSessionByAccessToken(ctx, s2.AccessTokenHash)
	require.NoError(t, err)

	// idempotent
	require.NoError(t, s.DeleteSessionByAccessToken(ctx, s1.AccessTokenHash))

	n, err := s.DeleteUserSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sessions, err = s.GetUserSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = s.GetSessionByAccessToken(ctx, s3.AccessTokenHash)
	require.NoError(t, err, "other users are untouched")
}

func TestSessionStorage_ReplaceSession(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s)
	old := newTestSession(user.ID, time.Now().Add(time.Hour))
	require.NoError(t, s.CreateSession(ctx, old))

	next := newTestSession(user.ID, time.Now().Add(2*time.Hour))
	require.NoError(t, s.ReplaceSession(ctx, old.RefreshTokenHash, next))

	_, err := s.GetSessionByRefreshToken(ctx, old.RefreshTokenHash)
	require.ErrorIs(t, err, storage.ErrSessionNotFound)
	_, err = s.GetSessionByAccessToken(ctx, old.AccessTokenHash)
	require.ErrorIs(t, err, storage.ErrSessionNotFound)

	got, err := s.GetSessionByRefreshToken(ctx, next.RefreshTokenHash)
	require.NoError(t, err)
	assert.Equal(t, old.ID, got.ID, "session identity survives rotation")
	assert.Equal(t, next.AccessTokenHash, got.AccessTokenHash)
	assert.WithinDuration(t, next.ExpiresAt, got.ExpiresAt, time.Millisecond)

	// replaying the old refresh token fails
	err = s.ReplaceSession(ctx, old.RefreshTokenHash, newTestSession(user.ID, time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestSessionStorage_ReplaceSession_Concurrent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s)
	old := newTestSession(user.ID, time.Now().Add(time.Hour))
	require.NoError(t, s.CreateSession(ctx, old))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.ReplaceSession(ctx, old.RefreshTokenHash, newTestSession(user.ID, time.Now().Add(time.Hour)))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, storage.ErrSessionNotFound)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success, "exactly one refresh wins")

	sessions, err := s.GetUserSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSessionStorage_DeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s)
	now := time.Now().UTC()

	expired := newTestSession(user.ID, now.Add(-time.Hour))
	alive := newTestSession(user.ID, now.Add(time.Hour))
	require.NoError(t, s.CreateSession(ctx, expired))
	require.NoError(t, s.CreateSession(ctx, alive))

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetSessionByRefreshToken(ctx, expired.RefreshTokenHash)
	require.ErrorIs(t, err, storage.ErrSessionNotFound)
	_, err = s.GetSessionByRefreshToken(ctx, alive.RefreshTokenHash)
	require.NoError(t, err)
}

func TestStorage_ResetUserCredentials(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateSession(ctx, newTestSession(user.ID, time.Now().Add(time.Hour))))
	}

	changed := time.Now().UTC()
	user.PasswordHash = "rotated"
	user.PasswordChangedAt = &changed
	fresh := newTestSession(user.ID, time.Now().Add(time.Hour))

	require.NoError(t, s.ResetUserCredentials(ctx, user, fresh))

	sessions, err := s.GetUserSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, fresh.ID, sessions[0].ID)

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.PasswordHash)

	// without a replacement session every session is purged
	user.Active = false
	require.NoError(t, s.ResetUserCredentials(ctx, user, nil))
	sessions, err = s.GetUserSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestStorage_ResetUserCredentials_RollsBack(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s)
	existing := newTestSession(user.ID, time.Now().Add(time.Hour))
	require.NoError(t, s.CreateSession(ctx, existing))

	user.PasswordHash = "rotated"
	// the foreign key fails after the user update and the purge
	bad := newTestSession("missing-user", time.Now().Add(time.Hour))

	err := s.ResetUserCredentials(ctx, user, bad)
	require.Error(t, err)

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash, "user update rolled back")

	_, err = s.GetSessionByAccessToken(ctx, existing.AccessTokenHash)
	require.NoError(t, err, "sessions restored by rollback")
}
