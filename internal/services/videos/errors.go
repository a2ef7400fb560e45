package videos

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFile       = errors.New("missing file")
	ErrMissingParameter  = errors.New("missing parameter")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ValidationError is a client mistake. Message is safe to echo back.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// StorageError is a disk or database failure. Its detail stays in the server log.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func invalid(err error, message string) error {
	return &ValidationError{Message: message, Err: err}
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
