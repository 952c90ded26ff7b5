package site

import "errors"

var (
	// ErrSiteNotFound is returned when site does not exist in the registry.
	ErrSiteNotFound = errors.New("site not found")
)
