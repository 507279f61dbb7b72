package upload

import "errors"

var (
	ErrUnsupportedDatabase = errors.New("unsupported database family")
	ErrInvalidSpec         = errors.New("invalid upload spec")
	ErrNoMimeType          = errors.New("no mime type could be determined")
	ErrNoExtension         = errors.New("no file extension could be determined")
	ErrInvalidBounds       = errors.New("at least one of max width or max height must be set")
	ErrNoResizeBackend     = errors.New("no resize backend configured")
	ErrResizeFailed        = errors.New("image resize failed")
	ErrCopyFailed          = errors.New("file copy failed")
	ErrInvalidIdentifier   = errors.New("identifier must be numeric")
	ErrRecordNotFound      = errors.New("upload record not found")
)
