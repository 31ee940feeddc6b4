package archive

import (
	"errors"
	"fmt"
)

// ErrMountClosed is returned by every operation on a closed mount,
// including reads on handles resolved before Close.
var ErrMountClosed = errors.New("archive mount is closed")

// ArchiveOpenError reports that a container could not be mounted.
type ArchiveOpenError struct {
	Locator string
	Err     error
}

func (e *ArchiveOpenError) Error() string {
	return fmt.Sprintf("open archive %q: %v", e.Locator, e.Err)
}

func (e *ArchiveOpenError) Unwrap() error { return e.Err }

// NotFoundError reports a path that does not resolve to a regular file in the mount.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive entry %q not found: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("archive entry %q not found", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }
