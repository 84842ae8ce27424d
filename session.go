package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions is the store wrapper for session rows. Expired sessions are kept
// until deleted or superseded; "active" is a query-time predicate.
type Sessions struct {
	repo *Repository[*Session]
	now  func() time.Time
}

func NewSessionsRepository(db bun.IDB) *Sessions {
	return &Sessions{
		repo: NewRepository(db, ModelHandlers[*Session]{
			NewRecord: func() *Session { return &Session{} },
		}),
		now: time.Now,
	}
}

// WithClock overrides the time source, mostly for tests.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	if now != nil {
		s.now = now
	}
	return s
}

// Repo exposes the underlying repository.
func (s *Sessions) Repo() *Repository[*Session] {
	return s.repo
}

// ActiveByUser returns the user's sessions whose access expiry has not
// passed. An empty result is a valid success.
func (s *Sessions) ActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	now := s.now().UTC()
	return s.repo.Select(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("?TableAlias.user_id = ?", userID).
			Where("?TableAlias.access_expires_at >= ?", now)
	})
}

// Register inserts a bare session row for the user; token material is
// attached separately once issued.
func (s *Sessions) Register(ctx context.Context, userID uuid.UUID) (*Session, error) {
	now := s.now().UTC()

	session := &Session{UserID: userID}
	session.SetID(uuid.New())
	session.Stamp(now)

	if err := s.repo.Insert(ctx, session); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register session")
	}

	return session, nil
}

// AttachTokens writes an issued token bundle and its expirations onto the
// session row.
func (s *Sessions) AttachTokens(ctx context.Context, sessionID uuid.UUID, bundle *TokenBundle) (*Session, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
	}

	session.AccessToken = bundle.AccessToken
	session.RefreshToken = bundle.RefreshToken
	session.AccessExpiresAt = bundle.AccessExpiresAt.UTC()
	session.RefreshExpiresAt = bundle.RefreshExpiresAt.UTC()
	session.Touch(s.now().UTC())

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session tokens")
	}

	return session, nil
}
