// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/rest"
	"github.com/taibuivan/parseadmin/internal/storage"
	"github.com/taibuivan/parseadmin/internal/users/admin"
	"github.com/taibuivan/parseadmin/internal/users/session"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// # Fakes

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]string
	ttls     map[string]time.Duration
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) Save(_ context.Context, tokenHash, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sessions[tokenHash] = userID
	s.ttls[tokenHash] = ttl
	return nil
}

func (s *memoryStore) UserID(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	userID, ok := s.sessions[tokenHash]
	if !ok {
		return "", session.ErrSessionNotFound
	}
	return userID, nil
}

func (s *memoryStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

type issuedToken struct {
	userID   string
	username string
	role     sec.UserRole
}

type fakeIssuer struct {
	issued []issuedToken
}

func (f *fakeIssuer) GenerateAccessToken(userID, username string, role sec.UserRole, _ time.Duration) (string, error) {
	f.issued = append(f.issued, issuedToken{userID: userID, username: username, role: role})
	return "jwt-for-" + username, nil
}

// # Fixture

type fixture struct {
	service  *session.Service
	database *storage.MemoryDatabase
	users    *rest.Store
	sessions *memoryStore
	issuer   *fakeIssuer
}

func newFixture(t *testing.T, requireVerified bool) *fixture {
	t.Helper()

	database := storage.NewMemoryDatabase()
	database.Register(admin.ClassName, storage.NewMemoryCollection("username"))
	users := rest.NewStore(database, rest.WithClock(func() time.Time { return fixedNow }))

	sessions := newMemoryStore()
	issuer := &fakeIssuer{}
	service := session.NewService(users, sessions, issuer, session.Options{
		SessionTTL:           24 * time.Hour,
		RequireVerifiedEmail: requireVerified,
		Now:                  func() time.Time { return fixedNow },
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return &fixture{service: service, database: database, users: users, sessions: sessions, issuer: issuer}
}

func (f *fixture) seed(t *testing.T, user rest.Record) rest.Record {
	t.Helper()
	created, err := f.users.Create(context.Background(), admin.ClassName, user)
	require.NoError(t, err)
	return created
}

// # Login

func TestLogin_IssuesTokens(t *testing.T) {
	f := newFixture(t, false)
	created := f.seed(t, rest.Record{"username": "alice", "password": "correct horse", "role": "viewer"})

	result, err := f.service.Login(context.Background(), session.LoginInput{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	assert.Equal(t, "jwt-for-alice", result.AccessToken)
	assert.Len(t, result.SessionToken, 32)
	assert.Equal(t, fixedNow.Add(24*time.Hour), result.ExpiresAt)
	assert.NotContains(t, result.User, admin.FieldHashedPassword)

	require.Len(t, f.issuer.issued, 1)
	assert.Equal(t, created["objectId"], f.issuer.issued[0].userID)
	assert.Equal(t, sec.RoleViewer, f.issuer.issued[0].role)

	assert.Equal(t, created["objectId"], f.sessions.sessions[sec.HashToken(result.SessionToken)])
	assert.Equal(t, 24*time.Hour, f.sessions.ttls[sec.HashToken(result.SessionToken)])
}

func TestLogin_UpgradesWeakHash(t *testing.T) {
	f := newFixture(t, false)

	weakStore := rest.NewStore(f.database, rest.WithPasswordHasher(func(p string) (string, error) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
		return string(hashed), err
	}))
	_, err := weakStore.Create(context.Background(), admin.ClassName,
		rest.Record{"username": "alice", "password": "correct horse"})
	require.NoError(t, err)

	_, err = f.service.Login(context.Background(), session.LoginInput{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	docs, err := f.database.Memory(admin.ClassName).Find(context.Background(),
		storage.Document{"username": "alice"}, storage.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	upgraded, _ := docs[0][admin.FieldHashedPassword].(string)
	assert.False(t, sec.NeedsRehash(upgraded))
	assert.True(t, sec.CheckPasswordHash("correct horse", upgraded))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, rest.Record{"username": "alice", "password": "correct horse"})

	_, err := f.service.Login(context.Background(), session.LoginInput{Username: "alice", Password: "wrong"})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, err = f.service.Login(context.Background(), session.LoginInput{Username: "ghost", Password: "correct horse"})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	assert.Empty(t, f.sessions.sessions)
}

func TestLogin_RequiresVerifiedEmail(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t, rest.Record{"username": "alice", "password": "correct horse", "emailVerified": false})
	f.seed(t, rest.Record{"username": "bob", "password": "correct horse", "emailVerified": true})

	_, err := f.service.Login(context.Background(), session.LoginInput{Username: "alice", Password: "correct horse"})
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	_, err = f.service.Login(context.Background(), session.LoginInput{Username: "bob", Password: "correct horse"})
	assert.NoError(t, err)
}

func TestLogin_StoreFailure(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, rest.Record{"username": "alice", "password": "correct horse"})
	boom := errors.New("boom")
	f.sessions.err = boom

	_, err := f.service.Login(context.Background(), session.LoginInput{Username: "alice", Password: "correct horse"})
	assert.ErrorIs(t, err, boom)
}

// # Me & Logout

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, rest.Record{"username": "alice", "password": "correct horse"})
	ctx := context.Background()

	result, err := f.service.Login(ctx, session.LoginInput{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	user, err := f.service.Me(ctx, result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, admin.FieldHashedPassword)

	require.NoError(t, f.service.Logout(ctx, result.SessionToken))
	require.NoError(t, f.service.Logout(ctx, result.SessionToken))

	_, err = f.service.Me(ctx, result.SessionToken)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMe_UnknownToken(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.service.Me(context.Background(), "")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = f.service.Me(context.Background(), "nope")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
