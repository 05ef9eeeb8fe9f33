package resumable

import "errors"

var (
	ErrInvalidOptions = errors.New("invalid options")

	ErrTooManyFiles = errors.New("too many files")
	ErrFileTooSmall = errors.New("file is too small")
	ErrFileTooLarge = errors.New("file is too large")
	ErrFileType     = errors.New("file type not allowed")

	ErrNotDirectory  = errors.New("drop target is not a directory")
	ErrNilSource     = errors.New("nil source")
	ErrChunkRejected = errors.New("chunk rejected by server")
	ErrStateNotFound = errors.New("upload state not found")
	ErrClosed        = errors.New("resumable closed")
)
