package registry

import (
	"errors"
	"fmt"

	"storygraph/internal/services"
)

var (
	// ErrNotFound indicates no asset exists for the requested id.
	ErrNotFound = errors.New("asset not found")
	// ErrInvalidID rejects blank asset identifiers.
	ErrInvalidID = errors.New("asset id required")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

func storageError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return services.Wrap(services.ErrStorage, "registry", operation, "", err)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
