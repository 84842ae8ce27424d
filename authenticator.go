package core

import (
	"context"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Authenticator is the account-facing service: login with session
// establishment, session enumeration, registration, and role changes. It
// layers the password manager, session store, and token issuer over the
// generic user CRUD service.
type Authenticator struct {
	users     *CrudService[*User]
	sessions  *Sessions
	tokens    *TokenService
	passwords PasswordAuthenticator
	logger    Logger
	now       func() time.Time

	mu        sync.Mutex
	userLocks map[uuid.UUID]*sync.Mutex
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users *CrudService[*User], sessions *Sessions, tokens *TokenService) *Authenticator {
	return &Authenticator{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: PasswordManager{},
		logger:    defLogger{},
		now:       time.Now,
		userLocks: map[uuid.UUID]*sync.Mutex{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

func (a *Authenticator) WithPasswordAuthenticator(p PasswordAuthenticator) *Authenticator {
	if p != nil {
		a.passwords = p
	}
	return a
}

// WithClock overrides the time source, mostly for tests.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	if now != nil {
		a.now = now
	}
	return a
}

// Users exposes the underlying user CRUD service.
func (a *Authenticator) Users() *CrudService[*User] {
	return a.users
}

// Sessions exposes the session store.
func (a *Authenticator) Sessions() *Sessions {
	return a.sessions
}

// userLock returns the mutex guarding session establishment for one user.
// It serializes the check-then-create sequence so concurrent logins cannot
// race two sessions into existence.
func (a *Authenticator) userLock(id uuid.UUID) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.userLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		a.userLocks[id] = lock
	}
	return lock
}

// Login verifies the credentials and ensures the account has an active
// session: when none exists one is created and a token bundle persisted onto
// it; when one already exists no new session or token is produced and the
// account is returned as-is. Callers retrieve token material through
// GetUserSessions.
//
// Unknown usernames and wrong passwords both come back as
// ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*User, error) {
	account, err := a.users.Repo().GetBy(ctx, "username", username)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	if err := a.passwords.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify password")
	}

	lock := a.userLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	active, err := a.sessions.ActiveByUser(ctx, account.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query active sessions")
	}

	if len(active) == 0 {
		if err := a.establishSession(ctx, account); err != nil {
			return nil, err
		}
	}

	a.logger.Debug("login succeeded for user %s", account.ID)

	return account, nil
}

func (a *Authenticator) establishSession(ctx context.Context, account *User) error {
	session, err := a.sessions.Register(ctx, account.ID)
	if err != nil {
		return err
	}

	bundle, err := a.tokens.IssueBundle(account, session.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session tokens")
	}

	if _, err := a.sessions.AttachTokens(ctx, session.ID, bundle); err != nil {
		return err
	}

	return nil
}

// GetUserSessions fails with NotFound for unknown users; for known users it
// returns the active sessions, where an empty list is a valid success.
func (a *Authenticator) GetUserSessions(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	exists, err := a.users.Repo().Exists(ctx, userID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check user")
	}
	if !exists {
		return nil, notFoundByID(userID)
	}

	sessions, err := a.sessions.ActiveByUser(ctx, userID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query active sessions")
	}

	return sessions, nil
}

// Register creates an account, hashing the cleartext password before it ever
// reaches the store. Duplicate usernames are rejected.
func (a *Authenticator) Register(ctx context.Context, record *User, password string) (*User, error) {
	if _, err := a.users.Repo().GetBy(ctx, "username", record.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username")
	}

	hash, err := a.passwords.HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}
	record.PasswordHash = hash

	if record.Role == RoleNone {
		record.Role = RoleUser
	}

	return a.users.Create(ctx, record)
}

// UpdateRole mutates the account's role and persists it.
func (a *Authenticator) UpdateRole(ctx context.Context, userID uuid.UUID, role Role) (*User, error) {
	if !role.IsValid() {
		return nil, goerrors.New("unknown role", goerrors.CategoryBadInput)
	}

	account, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if account.Role != role {
		account.Role = role
		account.Touch(a.now().UTC())
		if err := a.users.Repo().Update(ctx, account); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update role")
		}
	}

	return account, nil
}
