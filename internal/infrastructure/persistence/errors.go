package persistence

import (
	"fmt"

	"github.com/paycore/backend/internal/domain/shared"
)

func notFound(kind, id string) error {
	return shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("%s %s not found", kind, id))
}

func versionConflict(kind, id string, expected int) error {
	return shared.NewDomainError(shared.ErrConcurrencyConflict.Code,
		fmt.Sprintf("%s %s was modified concurrently (expected version %d)", kind, id, expected))
}
