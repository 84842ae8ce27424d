package core

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ApiKeys manages stored API keys and resolves presented key strings. It is
// the store-backed half of the key authentication scheme; the gate decides
// what a disabled key means for the request.
type ApiKeys struct {
	svc    *CrudService[*ApiKey]
	logger Logger
}

var _ KeyAuthorizer = (*ApiKeys)(nil)

// NewApiKeysService builds the key service; rights ride along on every read
// so authorization can project them into claims without a second query.
func NewApiKeysService(db bun.IDB) *ApiKeys {
	repo := NewRepository(db, ModelHandlers[*ApiKey]{
		NewRecord: func() *ApiKey { return &ApiKey{} },
	}, WithRelation("Rights"))

	return &ApiKeys{
		svc:    NewCrudService(repo, ApiKeySchema),
		logger: defLogger{},
	}
}

func (k *ApiKeys) WithLogger(logger Logger) *ApiKeys {
	if logger != nil {
		k.logger = logger
	}
	return k
}

// Service exposes the generic CRUD surface for key management.
func (k *ApiKeys) Service() *CrudService[*ApiKey] {
	return k.svc
}

// Authorize resolves a presented key to its stored record, rights included.
// Unknown keys fail authorization; a disabled key is returned as-is and the
// caller chooses between anonymous passthrough and rejection.
func (k *ApiKeys) Authorize(ctx context.Context, key string) (*ApiKey, error) {
	record, err := k.svc.Repo().GetBy(ctx, "key", key)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up api key")
	}

	if !record.Enabled {
		k.logger.Debug("disabled api key presented: %s", record.ID)
	}

	return record, nil
}
