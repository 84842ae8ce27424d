package core

// CredentialKind tags which authentication scheme produced an identity.
type CredentialKind string

const (
	CredentialNone   CredentialKind = ""
	CredentialJWT    CredentialKind = "jwt"
	CredentialAPIKey CredentialKind = "api_key"
)

// Claim names shared by both schemes.
const (
	ClaimAPIKey = "api_key"
	ClaimRole   = "role"
)

// Identity is the canonical, scheme-independent result of authentication.
// Both a validated JWT and a validated API key normalize into this shape
// before any business logic sees the request.
type Identity struct {
	Kind      CredentialKind    `json:"kind"`
	ID        string            `json:"id,omitempty"`
	Username  string            `json:"username,omitempty"`
	Role      Role              `json:"role"`
	SessionID string            `json:"session_id,omitempty"`
	Claims    map[string]string `json:"claims,omitempty"`
}

// Authenticated reports whether the identity came from a verified credential.
func (i *Identity) Authenticated() bool {
	return i != nil && i.Kind != CredentialNone
}

// Claim returns the named claim value, empty when absent.
func (i *Identity) Claim(name string) string {
	if i == nil {
		return ""
	}
	return i.Claims[name]
}

// IsAtLeast checks the identity's role against a minimum level. Anonymous
// callers never pass.
func (i *Identity) IsAtLeast(minRole Role) bool {
	return i.Authenticated() && i.Role.IsAtLeast(minRole)
}

// IdentityFromClaims normalizes validated JWT claims into an Identity.
func IdentityFromClaims(claims AuthClaims) *Identity {
	if claims == nil {
		return nil
	}

	return &Identity{
		Kind:      CredentialJWT,
		ID:        claims.UserID(),
		Username:  claims.Username(),
		Role:      claims.Role(),
		SessionID: claims.SessionID(),
		Claims: map[string]string{
			ClaimRole: claims.Role().Ordinal(),
		},
	}
}

// IdentityFromApiKey normalizes an authorized key into an Identity carrying
// the raw key claim, the role claim, and one claim per attached right.
// Disabled keys yield no identity.
func IdentityFromApiKey(key *ApiKey) *Identity {
	if key == nil || !key.Enabled {
		return nil
	}

	claims := map[string]string{
		ClaimAPIKey: key.Key,
		ClaimRole:   key.Role.Ordinal(),
	}
	for _, right := range key.Rights {
		claims[right.Name] = right.Value
	}

	return &Identity{
		Kind:     CredentialAPIKey,
		ID:       key.ID.String(),
		Username: key.Contact,
		Role:     key.Role,
		Claims:   claims,
	}
}
