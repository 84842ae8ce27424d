package core

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// IdentityContextKey is the default router-locals key the authorization gate
// stores the caller's identity under.
const IdentityContextKey = "identity"

// WithIdentity sets the Identity in the given context
func WithIdentity(r context.Context, identity *Identity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// IdentityFrom finds the identity in the standard context.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*Identity)
	return raw, ok && raw != nil
}

// RouterIdentity extracts the identity from the router context
func RouterIdentity(ctx router.Context, key string) (*Identity, bool) {
	if key == "" {
		key = IdentityContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	identity, ok := raw.(*Identity)
	return identity, ok && identity != nil
}
