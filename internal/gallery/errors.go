package gallery

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFilename = errors.New("invalid filename")
	ErrNotFound        = errors.New("not found")
	ErrEncode          = errors.New("encode failed")
)

// ValidationError rejects an unsafe or missing filename before any I/O.
type ValidationError struct {
	Filename string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filename %q: %s", e.Filename, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidFilename }

// NotFoundError reports a missing original.
type NotFoundError struct {
	Filename string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("original %q not found", e.Filename)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// EncodeError covers undecodable sources and failed derivative or original
// writes. Folder is empty when the failure concerns the original.
type EncodeError struct {
	Folder string
	Path   string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Folder == "" {
		return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("encode %s derivative %s: %v", e.Folder, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }
