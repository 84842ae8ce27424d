package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// CrudService implements create/read/update/delete for one entity type on
// top of a Repository and a merge Schema. Every operation resolves to one of
// the ServiceCode outcome kinds; unexpected storage failures come back as
// CategoryInternal errors, never as panics.
type CrudService[T Entity] struct {
	repo   *Repository[T]
	schema *Schema[T]
	logger Logger
	now    func() time.Time
}

// NewCrudService builds a CRUD service. The schema may be nil for entity
// types that are never updated through payload merges.
func NewCrudService[T Entity](repo *Repository[T], schema *Schema[T]) *CrudService[T] {
	return &CrudService[T]{
		repo:   repo,
		schema: schema,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (s *CrudService[T]) WithLogger(logger Logger) *CrudService[T] {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source, mostly for tests.
func (s *CrudService[T]) WithClock(now func() time.Time) *CrudService[T] {
	if now != nil {
		s.now = now
	}
	return s
}

// Repo exposes the underlying repository for services layered on top.
func (s *CrudService[T]) Repo() *Repository[T] {
	return s.repo
}

// GetAll returns every row when no filter is given; an empty store is a
// success. With an id filter it returns the matching subset and fails with
// NotFound when nothing matched.
func (s *CrudService[T]) GetAll(ctx context.Context, ids ...uuid.UUID) ([]T, error) {
	if len(ids) == 0 {
		records, err := s.repo.Select(ctx)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list entities")
		}
		return records, nil
	}

	records, err := s.repo.SelectByIDs(ctx, ids)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list entities by id")
	}

	if len(records) == 0 {
		return nil, goerrors.New("no results found for the given ids", goerrors.CategoryNotFound).
			WithTextCode(TextCodeRecordNotFound).
			WithMetadata(map[string]any{"ids": ids})
	}

	return records, nil
}

// GetByID fails with NotFound when the row is absent.
func (s *CrudService[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		var zero T
		if IsRecordNotFound(err) {
			return zero, notFoundByID(id)
		}
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to get entity")
	}
	return record, nil
}

// Create assigns an id when none is set, stamps both timestamps to UTC now,
// persists, and returns the stored row with its owned relations loaded.
func (s *CrudService[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	now := s.now().UTC()

	if record.GetID() == uuid.Nil {
		record.SetID(uuid.New())
	}
	record.Stamp(now)

	if err := s.repo.Insert(ctx, record); err != nil {
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create entity")
	}

	stored, err := s.repo.GetByID(ctx, record.GetID())
	if err != nil {
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reload created entity")
	}

	return stored, nil
}

// Update fetches the row, merges the payload under PATCH or PUT rules, and
// persists only when at least one field changed. A zero-change payload is a
// BadRequest outcome, distinguishing "nothing to update" from success, and
// leaves UpdatedAt untouched.
func (s *CrudService[T]) Update(ctx context.Context, id uuid.UUID, patch Payload, partial bool) (T, error) {
	var zero T

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}

	if s.schema == nil {
		return zero, ErrNotImplemented
	}

	changes, err := s.schema.Merge(record, patch, partial)
	if err != nil {
		return zero, err
	}

	if changes == 0 {
		return zero, goerrors.New("no updates found for entity", goerrors.CategoryBadInput).
			WithTextCode(TextCodeNoChanges).
			WithMetadata(map[string]any{"id": id.String()})
	}

	record.Touch(s.now().UTC())

	if err := s.repo.Update(ctx, record); err != nil {
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update entity")
	}

	s.logger.Debug("updated entity %s with %d changes", id, changes)

	return record, nil
}

// Delete removes the row and returns it as it existed before deletion.
func (s *CrudService[T]) Delete(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}

	if err := s.repo.Delete(ctx, record); err != nil {
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete entity")
	}

	return record, nil
}

func notFoundByID(id uuid.UUID) error {
	return goerrors.New("no results found for id", goerrors.CategoryNotFound).
		WithTextCode(TextCodeRecordNotFound).
		WithMetadata(map[string]any{"id": id.String()})
}
