package core

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// Default configuration values.
const (
	DefaultKeyHeaderName       = "X-Api-Key"
	DefaultAccessTokenMinutes  = 60
	DefaultRefreshTokenMinutes = 43200 // 30 days
)

// SimpleConfig is a plain-struct Config implementation.
type SimpleConfig struct {
	SigningKey          string   `json:"signing_key"`
	Issuer              string   `json:"issuer"`
	Audience            []string `json:"audience"`
	AccessTokenMinutes  int      `json:"access_token_minutes"`
	RefreshTokenMinutes int      `json:"refresh_token_minutes"`
	KeyHeaderName       string   `json:"key_header_name"`
	AcceptedKeys        []string `json:"accepted_keys"`
	JWTEnabled          bool     `json:"jwt_enabled"`
	KeyAuthEnabled      bool     `json:"key_auth_enabled"`
}

var _ Config = (*SimpleConfig)(nil)

// WithDefaults fills unset lifetime and header options.
func (c *SimpleConfig) WithDefaults() *SimpleConfig {
	if c.KeyHeaderName == "" {
		c.KeyHeaderName = DefaultKeyHeaderName
	}
	if c.AccessTokenMinutes == 0 {
		c.AccessTokenMinutes = DefaultAccessTokenMinutes
	}
	if c.RefreshTokenMinutes == 0 {
		c.RefreshTokenMinutes = DefaultRefreshTokenMinutes
	}
	return c
}

// Validate enforces the options each enabled scheme depends on.
func (c *SimpleConfig) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&c.AccessTokenMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.RefreshTokenMinutes, validation.Required, validation.Min(1)),
	}

	if c.JWTEnabled {
		fields = append(fields, validation.Field(&c.SigningKey, validation.Required))
	}
	if c.KeyAuthEnabled {
		fields = append(fields, validation.Field(&c.KeyHeaderName, validation.Required))
	}

	return validation.ValidateStruct(c, fields...)
}

func (c *SimpleConfig) GetSigningKey() string       { return c.SigningKey }
func (c *SimpleConfig) GetIssuer() string           { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string       { return c.Audience }
func (c *SimpleConfig) GetAccessTokenMinutes() int  { return c.AccessTokenMinutes }
func (c *SimpleConfig) GetRefreshTokenMinutes() int { return c.RefreshTokenMinutes }
func (c *SimpleConfig) GetKeyHeaderName() string    { return c.KeyHeaderName }
func (c *SimpleConfig) GetAcceptedKeys() []string   { return c.AcceptedKeys }
func (c *SimpleConfig) GetJWTEnabled() bool         { return c.JWTEnabled }
func (c *SimpleConfig) GetKeyAuthEnabled() bool     { return c.KeyAuthEnabled }
