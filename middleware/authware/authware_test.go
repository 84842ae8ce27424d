package authware_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	core "github.com/hrcommon/go-core"
	"github.com/hrcommon/go-core/middleware/authware"
)

type stubKeys struct {
	record *core.ApiKey
	err    error
	seen   string
}

func (s *stubKeys) Authorize(ctx context.Context, key string) (*core.ApiKey, error) {
	s.seen = key
	return s.record, s.err
}

func testTokenService() *core.TokenService {
	return core.NewTokenService([]byte("test-signing-key"), 60, 43200, "test-issuer", jwt.ClaimStrings{"test-audience"}, nil)
}

func issueToken(t *testing.T, ts *core.TokenService) (string, *core.User) {
	t.Helper()

	user := &core.User{Username: "alice", Role: core.RoleAdmin}
	user.ID = uuid.New()

	token, _, err := ts.IssueAccess(user, uuid.New())
	require.NoError(t, err)
	return token, user
}

func noopHandler(ctx router.Context) error { return nil }

func passthroughErrors(cfg authware.Config) authware.Config {
	cfg.ErrorHandler = func(ctx router.Context, err error) error {
		return err
	}
	return cfg
}

func TestAuthware_JWTScheme(t *testing.T) {
	ts := testTokenService()
	token, user := issueToken(t, ts)

	handler := authware.New(passthroughErrors(authware.Config{
		TokenValidator: ts,
	}))(noopHandler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + token)
	ctx.On("Context").Return(context.Background())
	ctx.On("SetContext", mock.Anything)

	var stored *core.Identity
	ctx.On("Locals", core.IdentityContextKey, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*core.Identity)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	require.True(t, ctx.NextCalled)

	require.NotNil(t, stored)
	assert.Equal(t, core.CredentialJWT, stored.Kind)
	assert.Equal(t, user.ID.String(), stored.ID)
	assert.Equal(t, "alice", stored.Username)
	assert.Equal(t, core.RoleAdmin, stored.Role)
}

func TestAuthware_ExpiredJWT(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour)
	issuer := testTokenService().WithClock(func() time.Time { return past })
	token, _ := issueToken(t, issuer)

	handler := authware.New(passthroughErrors(authware.Config{
		TokenValidator: testTokenService(),
	}))(noopHandler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + token)

	err := handler(ctx)
	require.Error(t, err)
	assert.True(t, core.IsTokenExpiredError(err))
	assert.False(t, ctx.NextCalled)
}

func TestAuthware_APIKeyScheme(t *testing.T) {
	record := &core.ApiKey{
		Key:     "secret-key",
		Enabled: true,
		Role:    core.RoleUser,
		Rights: []*core.Right{
			{Name: "reports", Value: "read"},
		},
	}
	record.ID = uuid.New()
	keys := &stubKeys{record: record}

	handler := authware.New(passthroughErrors(authware.Config{
		KeyAuthorizer: keys,
	}))(noopHandler)

	ctx := router.NewMockContext()
	ctx.On("GetString", core.DefaultKeyHeaderName, "").Return("secret-key")
	ctx.On("Context").Return(context.Background())
	ctx.On("SetContext", mock.Anything)

	var stored *core.Identity
	ctx.On("Locals", core.IdentityContextKey, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*core.Identity)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	require.True(t, ctx.NextCalled)
	assert.Equal(t, "secret-key", keys.seen)

	require.NotNil(t, stored)
	assert.Equal(t, core.CredentialAPIKey, stored.Kind)
	assert.Equal(t, core.RoleUser, stored.Role)
	assert.Equal(t, "read", stored.Claim("reports"))
}

func TestAuthware_UnknownAPIKeyRejected(t *testing.T) {
	keys := &stubKeys{err: core.ErrAPIKeyNotFound}

	handler := authware.New(passthroughErrors(authware.Config{
		KeyAuthorizer: keys,
	}))(noopHandler)

	ctx := router.NewMockContext()
	ctx.On("GetString", core.DefaultKeyHeaderName, "").Return("nope")
	ctx.On("Context").Return(context.Background())

	err := handler(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAPIKeyNotFound)
	assert.False(t, ctx.NextCalled)
}

func TestAuthware_DisabledAPIKeyIsAnonymous(t *testing.T) {
	record := &core.ApiKey{Key: "revoked", Enabled: false, Role: core.RoleAdmin}
	record.ID = uuid.New()
	keys := &stubKeys{record: record}

	handler := authware.New(passthroughErrors(authware.Config{
		KeyAuthorizer: keys,
	}))(noopHandler)

	ctx := router.NewMockContext()
	ctx.On("GetString", core.DefaultKeyHeaderName, "").Return("revoked")
	ctx.On("Context").Return(context.Background())

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled, "a disabled key degrades to anonymous access")
	ctx.AssertNotCalled(t, "Locals", core.IdentityContextKey, mock.Anything)
}

func TestAuthware_NoCredentialsIsAnonymous(t *testing.T) {
	handler := authware.New(passthroughErrors(authware.Config{
		TokenValidator: testTokenService(),
		KeyAuthorizer:  &stubKeys{err: core.ErrAPIKeyNotFound},
	}))(noopHandler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")
	ctx.On("GetString", core.DefaultKeyHeaderName, "").Return("")

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
	ctx.AssertNotCalled(t, "Locals", core.IdentityContextKey, mock.Anything)
}

func TestAuthware_JWTTakesPrecedenceOverAPIKey(t *testing.T) {
	ts := testTokenService()
	token, _ := issueToken(t, ts)
	keys := &stubKeys{err: core.ErrAPIKeyNotFound}

	handler := authware.New(passthroughErrors(authware.Config{
		TokenValidator: ts,
		KeyAuthorizer:  keys,
	}))(noopHandler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + token)
	ctx.On("GetString", core.DefaultKeyHeaderName, "").Return("whatever")
	ctx.On("Context").Return(context.Background())
	ctx.On("SetContext", mock.Anything)
	ctx.On("Locals", core.IdentityContextKey, mock.Anything).Return(nil)

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
	assert.Empty(t, keys.seen, "the key authorizer is never consulted when a bearer token validates")
}

func TestAuthware_FilterSkipsGate(t *testing.T) {
	handler := authware.New(passthroughErrors(authware.Config{
		TokenValidator: testTokenService(),
		Filter: func(ctx router.Context) bool {
			return true
		},
	}))(noopHandler)

	ctx := router.NewMockContext()

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
	ctx.AssertNotCalled(t, "GetString", "Authorization", "")
}

func TestRequireRole(t *testing.T) {
	handler := authware.RequireRole(core.RoleAdmin)(noopHandler)

	// An admin passes.
	ctx := router.NewMockContext()
	ctx.LocalsMock[core.IdentityContextKey] = &core.Identity{Kind: core.CredentialJWT, Role: core.RoleAdmin}
	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)

	// A plain user is forbidden.
	ctx = router.NewMockContext()
	ctx.LocalsMock[core.IdentityContextKey] = &core.Identity{Kind: core.CredentialJWT, Role: core.RoleUser}
	ctx.On("Status", router.StatusForbidden).Return(ctx)
	ctx.On("SendString", mock.Anything).Return(nil)
	require.NoError(t, handler(ctx))
	assert.False(t, ctx.NextCalled)
	ctx.AssertCalled(t, "Status", router.StatusForbidden)

	// An anonymous caller is unauthorized.
	ctx = router.NewMockContext()
	ctx.On("Status", router.StatusUnauthorized).Return(ctx)
	ctx.On("SendString", mock.Anything).Return(nil)
	require.NoError(t, handler(ctx))
	assert.False(t, ctx.NextCalled)
	ctx.AssertCalled(t, "Status", router.StatusUnauthorized)
}

func TestFromConfig_HonorsSchemeToggles(t *testing.T) {
	appCfg := (&core.SimpleConfig{
		SigningKey:     "secret",
		JWTEnabled:     true,
		KeyAuthEnabled: false,
	}).WithDefaults()

	cfg := authware.FromConfig(appCfg, testTokenService(), &stubKeys{})
	assert.NotNil(t, cfg.TokenValidator)
	assert.Nil(t, cfg.KeyAuthorizer)
	assert.Equal(t, core.DefaultKeyHeaderName, cfg.KeyHeader)

	appCfg = (&core.SimpleConfig{KeyAuthEnabled: true}).WithDefaults()
	cfg = authware.FromConfig(appCfg, testTokenService(), &stubKeys{})
	assert.Nil(t, cfg.TokenValidator)
	assert.NotNil(t, cfg.KeyAuthorizer)
}
