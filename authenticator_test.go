package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainPasswords keeps authenticator tests fast; bcrypt behavior is covered
// in password_test.go.
type plainPasswords struct{}

func (plainPasswords) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	return "hashed:" + password, nil
}

func (plainPasswords) ComparePasswordAndHash(password, hash string) error {
	if "hashed:"+password != hash {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

type authFixture struct {
	auther *Authenticator
	clock  *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := newTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	users := newUserService(t, db).WithClock(clock)
	sessions := NewSessionsRepository(db).WithClock(clock)
	tokens := NewTokenService([]byte("test-signing-key"), 60, 43200, "test-issuer", jwt.ClaimStrings{"test-audience"}, nil).WithClock(clock)

	auther := NewAuthenticator(users, sessions, tokens).
		WithPasswordAuthenticator(plainPasswords{}).
		WithClock(clock)

	return &authFixture{auther: auther, clock: &now}
}

func (f *authFixture) register(t *testing.T, username, password string) *User {
	t.Helper()

	account, err := f.auther.Register(context.Background(), &User{Username: username}, password)
	require.NoError(t, err)
	return account
}

func TestAuthenticator_Register(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()

	account, err := f.auther.Register(ctx, &User{Username: "alice", Email: "alice@example.com"}, "hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.Equal(t, "hashed:hunter2", account.PasswordHash)
	assert.Equal(t, RoleUser, account.Role, "role defaults to user when unset")

	_, err = f.auther.Register(ctx, &User{Username: "alice"}, "other")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, CodeBadRequest, CodeOf(err))
}

func TestAuthenticator_RegisterKeepsExplicitRole(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)

	account, err := f.auther.Register(context.Background(), &User{Username: "root", Role: RoleAdmin}, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, account.Role)
}

func TestAuthenticator_RegisterEmptyPassword(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)

	_, err := f.auther.Register(context.Background(), &User{Username: "alice"}, "")
	require.Error(t, err)
	assert.Equal(t, CodeBadRequest, CodeOf(err))
}

func TestAuthenticator_LoginEstablishesSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "hunter2")

	account, err := f.auther.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)

	sessions, err := f.auther.GetUserSessions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	assert.NotEmpty(t, s.AccessToken)
	assert.NotEmpty(t, s.RefreshToken)
	assert.True(t, s.RefreshExpiresAt.After(s.AccessExpiresAt))

	// The access token is bound to the session that carries it.
	claims, err := f.auther.tokens.Validate(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.ID.String(), claims.SessionID())
	assert.Equal(t, account.ID.String(), claims.UserID())
}

func TestAuthenticator_LoginReusesActiveSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	account := f.register(t, "alice", "hunter2")

	_, err := f.auther.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)

	first, err := f.auther.GetUserSessions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = f.auther.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)

	second, err := f.auther.GetUserSessions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, second, 1, "an active session suppresses creation of another")
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].AccessToken, second[0].AccessToken)
}

func TestAuthenticator_LoginAfterExpiryCreatesNewSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	account := f.register(t, "alice", "hunter2")

	_, err := f.auther.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)

	first, err := f.auther.GetUserSessions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Step past the access token lifetime; the old session is no longer active.
	*f.clock = f.clock.Add(2 * time.Hour)

	_, err = f.auther.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)

	current, err := f.auther.GetUserSessions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.NotEqual(t, first[0].ID, current[0].ID)
}

func TestAuthenticator_LoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "hunter2")

	_, unknownErr := f.auther.Login(ctx, "nobody", "hunter2")
	require.Error(t, unknownErr)
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)

	_, wrongErr := f.auther.Login(ctx, "alice", "wrong")
	require.Error(t, wrongErr)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)

	// Unknown account and wrong password are indistinguishable to the caller.
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	// Failed logins never mint sessions.
	account, err := f.auther.Users().Repo().GetBy(ctx, "username", "alice")
	require.NoError(t, err)
	sessions, err := f.auther.GetUserSessions(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestAuthenticator_ConcurrentLoginsShareOneSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	account := f.register(t, "alice", "hunter2")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.auther.Login(ctx, "alice", "hunter2")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	sessions, err := f.auther.GetUserSessions(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestAuthenticator_GetUserSessions(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	account := f.register(t, "alice", "hunter2")

	// A known user with no sessions is a success with an empty list.
	sessions, err := f.auther.GetUserSessions(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// An unknown user is not-found.
	_, err = f.auther.GetUserSessions(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestAuthenticator_UpdateRole(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	account := f.register(t, "alice", "hunter2")
	require.Equal(t, RoleUser, account.Role)

	updated, err := f.auther.UpdateRole(ctx, account.ID, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)

	stored, err := f.auther.Users().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, stored.Role)

	_, err = f.auther.UpdateRole(ctx, account.ID, Role(42))
	require.Error(t, err)
	assert.Equal(t, CodeBadRequest, CodeOf(err))

	_, err = f.auther.UpdateRole(ctx, uuid.New(), RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}
