package github

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the repository, issue or pull request does
// not exist or is not visible.
var ErrNotFound = errors.New("github: not found")

// UpstreamError is a non-2xx response other than 404.
type UpstreamError struct {
	Status int
	Path   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("github: %s returned status %d", e.Path, e.Status)
}
