package service

import (
	"errors"
	"fmt"

	"domex/api/internal/repository"
)

// --- Error Definitions ---
var (
	ErrFileNotFound     = errors.New("file not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrDuplicateFile    = errors.New("a file with this stored name already exists")
	ErrStoreUnavailable = errors.New("metadata store unavailable")
	ErrAIUnavailable    = errors.New("AI service not configured")
)

// validationError wraps ErrValidationFailed with a caller-facing message.
func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, msg)
}

// mapRepoError converts repository errors into service errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrFileNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrDuplicateFile, err)
	case errors.Is(err, repository.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.Is(err, repository.ErrInvalidInput):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return err
}
