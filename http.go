package core

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// LoginRequest is the credential payload accepted by the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
	)
}

// RoleRequest changes an account's role.
type RoleRequest struct {
	Role Role `json:"role"`
}

// SessionResponse is the wire shape of one session row.
type SessionResponse struct {
	ID               uuid.UUID `json:"id"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResponse returns the identity fields plus the caller's usable session.
type LoginResponse struct {
	ID        uuid.UUID        `json:"id"`
	Username  string           `json:"username"`
	Email     string           `json:"email,omitempty"`
	FirstName string           `json:"first_name,omitempty"`
	LastName  string           `json:"last_name,omitempty"`
	Role      Role             `json:"role"`
	Session   *SessionResponse `json:"session,omitempty"`
}

// SessionStateResponse answers "who am I and what sessions do I hold".
type SessionStateResponse struct {
	Authenticated bool              `json:"authenticated"`
	Username      string            `json:"username,omitempty"`
	Role          Role              `json:"role"`
	Sessions      []SessionResponse `json:"sessions,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AuthControllerRoutes are the paths the controller registers under.
type AuthControllerRoutes struct {
	Login    string
	Register string
	Sessions string
	Role     string
}

// AuthController exposes the authentication service over JSON endpoints.
// Routing and policy middleware are supplied by the host application.
type AuthController struct {
	Logger Logger
	Auther *Authenticator
	Routes *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = routes
		return c
	}
}

func NewAuthController(auther *Authenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Auther: auther,
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Register: "/register",
			Sessions: "/sessions",
			Role:     "/users/:uuid/role",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the controller. The role endpoint is expected to
// sit behind an admin policy, e.g. authware.RequireRole(RoleAdmin).
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	app.Post(controller.Routes.Login, controller.Login).SetName("auth.login")
	app.Post(controller.Routes.Register, controller.Register).SetName("auth.register")
	app.Get(controller.Routes.Sessions, controller.Sessions).SetName("auth.sessions")
	app.Put(controller.Routes.Role, controller.UpdateRole).SetName("auth.role")
}

// Login verifies credentials and returns the account with its active
// session's token bundle.
func (a *AuthController) Login(ctx router.Context) error {
	payload := &LoginRequest{}
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, router.StatusBadRequest, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(ctx, router.StatusBadRequest, err)
	}

	account, err := a.Auther.Login(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		return a.renderServiceError(ctx, err)
	}

	sessions, err := a.Auther.GetUserSessions(ctx.Context(), account.ID)
	if err != nil {
		return a.renderServiceError(ctx, err)
	}

	resp := &LoginResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      account.Role,
	}

	if len(sessions) > 0 {
		s := sessionResponse(sessions[0])
		resp.Session = &s
	}

	return ctx.JSON(router.StatusOK, resp)
}

// Register creates an account; the password never echoes back.
func (a *AuthController) Register(ctx router.Context) error {
	payload := &RegisterRequest{}
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, router.StatusBadRequest, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(ctx, router.StatusBadRequest, err)
	}

	record := &User{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}

	account, err := a.Auther.Register(ctx.Context(), record, payload.Password)
	if err != nil {
		return a.renderServiceError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, &LoginResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      account.Role,
	})
}

// Sessions reports the caller's authentication state and active sessions.
// Anonymous callers get authenticated=false rather than an error.
func (a *AuthController) Sessions(ctx router.Context) error {
	identity, ok := RouterIdentity(ctx, "")
	if !ok {
		return ctx.JSON(router.StatusOK, &SessionStateResponse{Authenticated: false})
	}

	resp := &SessionStateResponse{
		Authenticated: true,
		Username:      identity.Username,
		Role:          identity.Role,
	}

	userID, err := uuid.Parse(identity.ID)
	if err != nil {
		// API key identities have no user behind them, report state only.
		return ctx.JSON(router.StatusOK, resp)
	}

	sessions, err := a.Auther.GetUserSessions(ctx.Context(), userID)
	if err != nil {
		return a.renderServiceError(ctx, err)
	}

	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, sessionResponse(s))
	}

	return ctx.JSON(router.StatusOK, resp)
}

// UpdateRole changes the target account's role.
func (a *AuthController) UpdateRole(ctx router.Context) error {
	userID, err := uuid.Parse(ctx.Param("uuid", ""))
	if err != nil {
		return a.renderError(ctx, router.StatusBadRequest, err)
	}

	payload := &RoleRequest{}
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, router.StatusBadRequest, err)
	}

	account, err := a.Auther.UpdateRole(ctx.Context(), userID, payload.Role)
	if err != nil {
		return a.renderServiceError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, &LoginResponse{
		ID:       account.ID,
		Username: account.Username,
		Role:     account.Role,
	})
}

func (a *AuthController) renderServiceError(ctx router.Context, err error) error {
	a.Logger.Debug("request failed: %v (%s)", err, CodeOf(err))
	return ctx.JSON(HTTPStatus(err), &errorResponse{
		Error: err.Error(),
		Code:  CodeOf(err).String(),
	})
}

func (a *AuthController) renderError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, &errorResponse{Error: err.Error()})
}

func sessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		ID:               s.ID,
		AccessToken:      s.AccessToken,
		RefreshToken:     s.RefreshToken,
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshExpiresAt: s.RefreshExpiresAt,
	}
}
