package services

import "github.com/pkg/errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrCorruptSnapshot  = errors.New("stored snapshot is corrupt")
	ErrCompletionFailed = errors.New("completion request failed")
	ErrStorageDisabled  = errors.New("object storage is not configured")
	ErrStaleContext     = errors.New("conversation changed while the answer was pending")
)
