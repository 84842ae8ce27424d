package authware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-router"

	core "github.com/hrcommon/go-core"
)

var (
	defaultTokenLookup    = "header:" + router.HeaderAuthorization
	defaultKeyHeader      = core.DefaultKeyHeaderName
	ErrMissingOrMalformed = errors.New("missing or malformed credential")
	ErrInsufficientRole   = errors.New("access denied: insufficient role")
	ErrNotAuthenticated   = errors.New("access denied: authentication required")
)

// Config drives the dual scheme gate: a bearer JWT is tried first, then the
// API key header, and a request carrying neither proceeds anonymously.
type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// ContextKey is the locals key the resolved identity is stored under.
	ContextKey string

	// TokenLookup configures where the bearer token is read from, e.g.
	// "header:Authorization,query:auth_token,cookie:jwt".
	TokenLookup string
	AuthScheme  string

	// KeyHeader is the request header carrying the API key.
	KeyHeader string

	// TokenValidator handles the JWT scheme. Leave nil to disable it.
	TokenValidator core.TokenValidator
	// KeyAuthorizer handles the API key scheme. Leave nil to disable it.
	KeyAuthorizer core.KeyAuthorizer

	// ContextEnricher propagates the identity to the standard Go context
	// after a successful resolution.
	ContextEnricher func(ctx router.Context, identity *core.Identity)
}

// New builds the authentication middleware. Requests that present no
// credential pass through anonymously; policy middleware such as
// RequireRole decides whether anonymous access is acceptable.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			if cfg.TokenValidator != nil {
				raw, err := ExtractRawToken(ctx, cfg.getExtractors())
				if err == nil && raw != "" {
					return cfg.resolveJWT(ctx, raw)
				}
			}

			if cfg.KeyAuthorizer != nil {
				if key := ctx.GetString(cfg.KeyHeader, ""); key != "" {
					return cfg.resolveAPIKey(ctx, key)
				}
			}

			return ctx.Next()
		}
	}
}

func (cfg Config) resolveJWT(ctx router.Context, raw string) error {
	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil {
		return cfg.ErrorHandler(ctx, err)
	}

	return cfg.admit(ctx, core.IdentityFromClaims(claims))
}

func (cfg Config) resolveAPIKey(ctx router.Context, key string) error {
	record, err := cfg.KeyAuthorizer.Authorize(ctx.Context(), key)
	if err != nil {
		return cfg.ErrorHandler(ctx, err)
	}

	identity := core.IdentityFromApiKey(record)
	if identity == nil {
		// Disabled keys degrade to anonymous access rather than leaking
		// the key's status to the caller.
		return ctx.Next()
	}

	return cfg.admit(ctx, identity)
}

func (cfg Config) admit(ctx router.Context, identity *core.Identity) error {
	ctx.Locals(cfg.ContextKey, identity)

	if cfg.ContextEnricher != nil {
		cfg.ContextEnricher(ctx, identity)
	}

	return cfg.SuccessHandler(ctx)
}

// RequireRole gates a route on a minimum role. It expects New to have run
// earlier in the chain and stored an identity under contextKey.
func RequireRole(minRole core.Role, contextKey ...string) router.MiddlewareFunc {
	key := core.IdentityContextKey
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			identity, ok := core.RouterIdentity(ctx, key)
			if !ok || !identity.Authenticated() {
				return ctx.Status(router.StatusUnauthorized).SendString(ErrNotAuthenticated.Error())
			}

			if !identity.IsAtLeast(minRole) {
				return ctx.Status(router.StatusForbidden).SendString(ErrInsufficientRole.Error())
			}

			return ctx.Next()
		}
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrMissingOrMalformed.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrMissingOrMalformed.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired credential")
		}
	}

	if cfg.TokenValidator == nil && cfg.KeyAuthorizer == nil {
		panic("AUTH: middleware configuration: at least one of TokenValidator or KeyAuthorizer is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = core.IdentityContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.KeyHeader == "" {
		cfg.KeyHeader = defaultKeyHeader
	}

	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = func(ctx router.Context, identity *core.Identity) {
			ctx.SetContext(core.WithIdentity(ctx.Context(), identity))
		}
	}

	return cfg
}

// FromConfig builds a middleware Config from the application config,
// honoring the per scheme enable toggles.
func FromConfig(appCfg core.Config, validator core.TokenValidator, keys core.KeyAuthorizer) Config {
	cfg := Config{
		KeyHeader: appCfg.GetKeyHeaderName(),
	}

	if appCfg.GetJWTEnabled() {
		cfg.TokenValidator = validator
	}

	if appCfg.GetKeyAuthEnabled() {
		cfg.KeyAuthorizer = keys
	}

	return cfg
}

func (cfg *Config) getExtractors() []Extractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func ExtractRawToken(ctx router.Context, extractors []Extractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetExtractors(tokenLookup string, authSchemes ...string) []Extractor {
	extractors := make([]Extractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type Extractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts the token from the request header.
func tokenFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			fmt.Println("[WARNING] Missing auth scheme in config definition")
			return "", ErrMissingOrMalformed
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrMissingOrMalformed
	}
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromParam returns a function that extracts the token from the url param string.
func tokenFromParam(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}
