package registry

import (
	"fmt"

	"github.com/ganot/forge-registry/internal/repository"
)

// ErrConcurrencyConflict is returned by Save when the stored version no
// longer matches the version captured at load time.
var ErrConcurrencyConflict = fmt.Errorf("registry: %w", repository.ErrConflict)
