// Package storage hides local-disk and object-store backends behind a
// single streaming contract. Every operation is addressed by an opaque
// key generated by the upload pipeline; user-supplied filenames never
// reach this layer.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Backend discriminators persisted in drop records (storage_type).
const (
	TypeLocal = "local"
	TypeMinio = "minio"
)

// ErrNotFound reports that a storage key has no object behind it.
var ErrNotFound = errors.New("storage: object not found")

// Backend is the streaming contract shared by all storage
// implementations.
//
// Save must not require the total length up front: it consumes r until
// EOF and reports how many bytes were written. ReadRange returns a
// lazy, forward-only stream covering the inclusive window [start, end].
// Delete is idempotent and reports whether anything was removed.
type Backend interface {
	// Type returns the backend discriminator (TypeLocal, TypeMinio).
	Type() string

	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context, key string) (int64, error)
	Move(ctx context.Context, oldKey, newKey string) error
}

// validKey rejects keys that could escape the backend's namespace.
// Keys are produced by the pipeline and should never trip this; it is a
// hard invariant, not input validation.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return !strings.ContainsRune(key, '\\')
}
