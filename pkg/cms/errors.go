package cms

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidCredentials indicates a login with an unknown username or a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownType indicates a record type tag outside users, media, pages and posts
	ErrUnknownType = errors.New("invalid type")

	// ErrUnsupportedType indicates a known record type that the operation does not accept
	ErrUnsupportedType = errors.New("operation not supported for type")

	// ErrNotFound indicates a record was not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a write that would break a unique field
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidInput indicates a request missing required fields
	ErrInvalidInput = errors.New("invalid input")

	// ErrUploadFailed indicates an upload operation failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrMissingFile indicates an upload request without a file
	ErrMissingFile = errors.New("no file provided")
)

// RecordError represents an error related to a record operation
type RecordError struct {
	Type RecordType
	ID   string
	Op   string
	Err  error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s operation %s failed: %v", e.Type, e.Op, e.Err)
	}
	return fmt.Sprintf("%s operation %s failed for %s: %v", e.Type, e.Op, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
