package core

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ValidationLeeway is the clock-skew grace window applied when checking
// token lifetimes.
const ValidationLeeway = 30 * time.Second

// refreshTokenBytes is the entropy of an opaque refresh token before
// base64 encoding.
const refreshTokenBytes = 64

// TokenBundle is the material written onto a session row at issuance.
type TokenBundle struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenService issues and validates token material. It is a pure function of
// its inputs and configuration; persistence of the bundle belongs to the
// session manager.
type TokenService struct {
	signingKey     []byte
	issuer         string
	audience       jwt.ClaimStrings
	accessMinutes  int
	refreshMinutes int
	logger         Logger
	now            func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, accessMinutes, refreshMinutes int, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		signingKey:     signingKey,
		accessMinutes:  accessMinutes,
		refreshMinutes: refreshMinutes,
		issuer:         issuer,
		audience:       audience,
		logger:         logger,
		now:            time.Now,
	}
}

// WithClock overrides the time source, mostly for tests.
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		ts.now = now
	}
	return ts
}

// IssueAccess signs an access token for the user bound to the given session
// id (jti) and returns it with its expiration.
func (ts *TokenService) IssueAccess(user *User, sessionID uuid.UUID) (string, time.Time, error) {
	now := ts.now()
	expiresAt := now.Add(time.Duration(ts.accessMinutes) * time.Minute)

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        sessionID.String(),
		},
		UID:      user.ID.String(),
		Name:     user.Username,
		UserRole: user.Role.Ordinal(),
	}

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// IssueRefresh produces an opaque high-entropy refresh token with its
// expiration.
func (ts *TokenService) IssueRefresh() (string, time.Time, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate refresh token")
	}

	expiresAt := ts.now().Add(time.Duration(ts.refreshMinutes) * time.Minute)

	return base64.StdEncoding.EncodeToString(buf), expiresAt, nil
}

// IssueBundle mints both tokens for a session in one call.
func (ts *TokenService) IssueBundle(user *User, sessionID uuid.UUID) (*TokenBundle, error) {
	access, accessExp, err := ts.IssueAccess(user, sessionID)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := ts.IssueRefresh()
	if err != nil {
		return nil, err
	}

	return &TokenBundle{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenService) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// Issuer, audience, lifetime, and signature are all checked; lifetimes get a
// small leeway against clock skew.
func (ts *TokenService) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithLeeway(ValidationLeeway),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}
