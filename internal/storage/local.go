package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Chunk sizes for local file transfer. Reads use a larger buffer than
// writes because downloads dominate the workload.
const (
	localReadChunk  = 8 * 1024 * 1024
	localWriteChunk = 4 * 1024 * 1024
)

// Local stores objects as files under a base directory. Keys map to
// relative paths below the base; parent directories are created on
// demand.
type Local struct {
	base       string
	readChunk  int
	writeChunk int
}

// NewLocal creates a local backend rooted at base, creating the
// directory if needed.
func NewLocal(base string) (*Local, error) {
	if base == "" {
		return nil, errors.New("storage: base directory is empty")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base dir: %w", err)
	}
	return &Local{base: base, readChunk: localReadChunk, writeChunk: localWriteChunk}, nil
}

func (l *Local) Type() string { return TypeLocal }

func (l *Local) fullPath(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(l.base, filepath.FromSlash(key)), nil
}

// Save streams r into the object at key. A partial file left behind by
// a failed copy is removed before the error is returned.
func (l *Local) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	path, err := l.fullPath(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("storage: create parent dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("storage: open for write: %w", err)
	}

	buf := make([]byte, l.writeChunk)
	written, err := io.CopyBuffer(f, &contextReader{ctx: ctx, r: r}, buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return written, fmt.Errorf("storage: write %q: %w", key, err)
	}
	return written, nil
}

func (l *Local) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	return l.ReadRange(ctx, key, 0, -1)
}

// ReadRange opens the object and returns a stream over the inclusive
// window [start, end]. end < 0 means read to EOF.
func (l *Local) ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	path, err := l.fullPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: open %q: %w", key, err)
	}

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("storage: seek %q: %w", key, err)
		}
	}

	if end < 0 {
		return f, nil
	}
	return &limitedFile{f: f, remaining: end - start + 1}, nil
}

func (l *Local) Delete(ctx context.Context, key string) (bool, error) {
	path, err := l.fullPath(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return true, nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	path, err := l.fullPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %q: %w", key, err)
	}
	return true, nil
}

func (l *Local) Size(ctx context.Context, key string) (int64, error) {
	path, err := l.fullPath(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("storage: stat %q: %w", key, err)
	}
	return info.Size(), nil
}

func (l *Local) Move(ctx context.Context, oldKey, newKey string) error {
	oldPath, err := l.fullPath(oldKey)
	if err != nil {
		return err
	}
	newPath, err := l.fullPath(newKey)
	if err != nil {
		return err
	}
	if _, err := os.Stat(oldPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("storage: stat %q: %w", oldKey, err)
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("storage: create parent dir: %w", err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("storage: move %q to %q: %w", oldKey, newKey, err)
	}
	return nil
}

// limitedFile bounds reads to a byte window and closes the underlying
// file.
type limitedFile struct {
	f         *os.File
	remaining int64
}

func (lf *limitedFile) Read(p []byte) (int, error) {
	if lf.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > lf.remaining {
		p = p[:lf.remaining]
	}
	n, err := lf.f.Read(p)
	lf.remaining -= int64(n)
	return n, err
}

func (lf *limitedFile) Close() error { return lf.f.Close() }

// contextReader aborts a long copy when the request context is
// cancelled (client disconnect mid-upload).
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
