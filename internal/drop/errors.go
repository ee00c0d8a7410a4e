package drop

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown slug. Private drops accessed
	// without authentication also surface this, so their existence is
	// never revealed.
	ErrNotFound = errors.New("drop: not found")

	// ErrConflict reports that an explicit slug is already taken.
	ErrConflict = errors.New("drop: slug already exists")

	// ErrPasswordInvalid reports a missing or mismatched drop password.
	ErrPasswordInvalid = errors.New("drop: invalid password")

	// ErrAccessDenied reports a write attempt without a sufficiently
	// privileged identity.
	ErrAccessDenied = errors.New("drop: access denied")
)

// ValidationError reports client metadata that violates a field bound.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("drop: %s %s", e.Field, e.Reason)
}

// IntegrityError reports that the client-declared length does not match
// the bytes actually streamed. The stored object has already been
// rolled back when this is returned.
type IntegrityError struct {
	Declared int64
	Actual   int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("drop: size mismatch: declared %d bytes, received %d", e.Declared, e.Actual)
}

// TooLargeError reports an upload exceeding the configured maximum.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("drop: upload exceeds maximum size of %d bytes", e.Limit)
}

// StorageError wraps a backend I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("drop: storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// MetadataError wraps a metadata-store failure.
type MetadataError struct {
	Op  string
	Err error
}

func (e *MetadataError) Error() string { return fmt.Sprintf("drop: metadata %s: %v", e.Op, e.Err) }
func (e *MetadataError) Unwrap() error { return e.Err }
