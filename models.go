package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entity is the contract every persisted record satisfies: an identifier
// assigned once at creation and create/update timestamps. The generic
// repository and CRUD service are bound to it.
type Entity interface {
	GetID() uuid.UUID
	SetID(uuid.UUID)
	Stamp(now time.Time)
	Touch(now time.Time)
	GetUpdatedAt() time.Time
}

// Model is the embedded base for all persisted entities.
type Model struct {
	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at,omitempty"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at,omitempty"`
}

func (m *Model) GetID() uuid.UUID { return m.ID }

func (m *Model) SetID(id uuid.UUID) { m.ID = id }

// Stamp sets both timestamps at creation time.
func (m *Model) Stamp(now time.Time) {
	m.CreatedAt = now
	m.UpdatedAt = now
}

// Touch bumps UpdatedAt. Callers only invoke it after at least one field
// actually changed, keeping UpdatedAt monotonically non-decreasing.
func (m *Model) Touch(now time.Time) {
	if now.After(m.UpdatedAt) {
		m.UpdatedAt = now
	}
}

func (m *Model) GetUpdatedAt() time.Time { return m.UpdatedAt }

// User is an account that can authenticate with a username and password.
// PasswordHash never holds cleartext and is excluded from JSON.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	Model

	Username     string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	Email        string     `bun:"email" json:"email,omitempty"`
	FirstName    string     `bun:"first_name" json:"first_name,omitempty"`
	LastName     string     `bun:"last_name" json:"last_name,omitempty"`
	Role         Role       `bun:"role,notnull" json:"role"`
	Sessions     []*Session `bun:"rel:has-many,join:id=user_id" json:"sessions,omitempty"`
}

// Session binds a user to a pair of tokens and their expirations. A session
// is active while AccessExpiresAt has not passed.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	Model

	UserID           uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	AccessToken      string    `bun:"access_token" json:"access_token,omitempty"`
	RefreshToken     string    `bun:"refresh_token" json:"refresh_token,omitempty"`
	AccessExpiresAt  time.Time `bun:"access_expires_at" json:"access_expires_at,omitempty"`
	RefreshExpiresAt time.Time `bun:"refresh_expires_at" json:"refresh_expires_at,omitempty"`
}

// Active reports whether the session's access token is still usable at now.
func (s *Session) Active(now time.Time) bool {
	return !s.AccessExpiresAt.Before(now)
}

// ApiKey is an opaque shared secret with an attached role and rights.
type ApiKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:key"`
	Model

	Key     string   `bun:"key,notnull,unique" json:"key,omitempty"`
	Enabled bool     `bun:"enabled,notnull" json:"enabled"`
	Role    Role     `bun:"role,notnull" json:"role"`
	Contact string   `bun:"contact" json:"contact,omitempty"`
	Email   string   `bun:"email" json:"email,omitempty"`
	Rights  []*Right `bun:"rel:has-many,join:id=api_key_id" json:"rights,omitempty"`
}

// Right is a named claim attached to an API key; at authorization time each
// right becomes one claim on the caller's identity.
type Right struct {
	bun.BaseModel `bun:"table:rights,alias:rgt"`
	Model

	ApiKeyID uuid.UUID `bun:"api_key_id,notnull,type:uuid" json:"api_key_id,omitempty"`
	Name     string    `bun:"name,notnull" json:"name,omitempty"`
	Value    string    `bun:"value" json:"value,omitempty"`
}
