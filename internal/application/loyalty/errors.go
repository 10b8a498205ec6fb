package loyalty

import (
	"errors"

	"github.com/qualee/backend/internal/domain/shared"
)

// mapNotFound replaces a repository not-found error with a specific one.
func mapNotFound(err, specific error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return specific
	}
	return err
}
