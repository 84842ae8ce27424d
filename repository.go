package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SelectCriteria mutates a select query; used for relation loading and
// ad-hoc filters.
type SelectCriteria func(*bun.SelectQuery) *bun.SelectQuery

// WithRelation eager-loads the named relation.
func WithRelation(name string) SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation(name)
	}
}

// ModelHandlers carries the per-type hooks the generic repository needs.
type ModelHandlers[T Entity] struct {
	NewRecord func() T
}

// Repository is a generic bun-backed store for one entity type. It returns
// raw storage errors; outcome classification lives in the CRUD service.
type Repository[T Entity] struct {
	db       bun.IDB
	handlers ModelHandlers[T]
	defaults []SelectCriteria
}

// NewRepository builds a repository. Default criteria are applied to every
// select, typically to keep owned relations loaded.
func NewRepository[T Entity](db bun.IDB, handlers ModelHandlers[T], defaults ...SelectCriteria) *Repository[T] {
	return &Repository[T]{
		db:       db,
		handlers: handlers,
		defaults: defaults,
	}
}

// DB exposes the underlying handle for callers that need raw queries.
func (r *Repository[T]) DB() bun.IDB {
	return r.db
}

func (r *Repository[T]) apply(q *bun.SelectQuery, criteria []SelectCriteria) *bun.SelectQuery {
	for _, c := range r.defaults {
		q = c(q)
	}
	for _, c := range criteria {
		q = c(q)
	}
	return q
}

// Select returns every row.
func (r *Repository[T]) Select(ctx context.Context, criteria ...SelectCriteria) ([]T, error) {
	records := make([]T, 0)
	q := r.apply(r.db.NewSelect().Model(&records), criteria)
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// SelectByIDs returns the rows matching the id set; missing ids are simply
// absent from the result.
func (r *Repository[T]) SelectByIDs(ctx context.Context, ids []uuid.UUID, criteria ...SelectCriteria) ([]T, error) {
	records := make([]T, 0, len(ids))
	q := r.apply(r.db.NewSelect().Model(&records), criteria).
		Where("?TableAlias.id IN (?)", bun.In(ids))
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByID returns the row with the given id or ErrRecordNotFound.
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID, criteria ...SelectCriteria) (T, error) {
	return r.GetBy(ctx, "id", id, criteria...)
}

// GetBy returns the first row where column equals value. The column name is
// supplied by repository code, never by request payloads.
func (r *Repository[T]) GetBy(ctx context.Context, column string, value any, criteria ...SelectCriteria) (T, error) {
	record := r.handlers.NewRecord()
	q := r.apply(r.db.NewSelect().Model(record), criteria).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1)

	if err := q.Scan(ctx); err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrRecordNotFound
		}
		return zero, err
	}

	return record, nil
}

// Count returns the number of matching rows.
func (r *Repository[T]) Count(ctx context.Context, criteria ...SelectCriteria) (int, error) {
	q := r.db.NewSelect().Model(r.handlers.NewRecord())
	for _, c := range criteria {
		q = c(q)
	}
	return q.Count(ctx)
}

// Exists reports whether a row with the given id is present.
func (r *Repository[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	count, err := r.Count(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert persists a new row.
func (r *Repository[T]) Insert(ctx context.Context, record T) error {
	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	return err
}

// Update persists the record by primary key.
func (r *Repository[T]) Update(ctx context.Context, record T) error {
	_, err := r.db.NewUpdate().Model(record).WherePK().Exec(ctx)
	return err
}

// Delete removes the record by primary key.
func (r *Repository[T]) Delete(ctx context.Context, record T) error {
	_, err := r.db.NewDelete().Model(record).WherePK().Exec(ctx)
	return err
}

// IsRecordNotFound matches both the structured sentinel and the raw driver
// miss.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrRecordNotFound)
}
