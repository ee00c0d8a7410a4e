package drop

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"dropserve/internal/auth"
	"dropserve/internal/logging"
	"dropserve/internal/storage"
)

// Pagination bounds for List.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Config carries the tunables the service needs; passed in at
// construction, never read from the environment here.
type Config struct {
	// MaxFileSize caps uploads in bytes. 0 means no limit.
	MaxFileSize int64

	// RangeCap bounds open-ended Range requests. 0 uses the parser
	// default.
	RangeCap int64

	// PasswordProtection enables the drop-password check on reads.
	PasswordProtection bool

	// RequireAuth enables the private-drop authentication check.
	RequireAuth bool
}

// Service orchestrates the upload pipeline, streaming engine and
// metadata operations over one storage backend and one metadata store.
type Service struct {
	store   Store
	backend storage.Backend
	log     *logging.Logger
	cfg     Config
}

// NewService wires the service together.
func NewService(store Store, backend storage.Backend, log *logging.Logger, cfg Config) *Service {
	return &Service{store: store, backend: backend, log: log, cfg: cfg}
}

// Create turns an inbound byte stream plus metadata into a durably
// stored object and a consistent Drop row, or fails with nothing
// half-created. Uploads require a writer identity. Bytes are hashed
// while they stream to the backend in a
// single pass; any failure after bytes were written triggers a
// compensating delete.
func (s *Service) Create(ctx context.Context, in CreateInput, r io.Reader, ident *auth.Identity) (*Drop, error) {
	if err := requireWriter(ident); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(in.Slug)
	if slug != "" {
		_, err := s.store.GetBySlug(ctx, slug)
		if err == nil {
			return nil, ErrConflict
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	} else {
		var err error
		slug, err = generateSlug(ctx, s.store)
		if err != nil {
			return nil, &MetadataError{Op: "slug", Err: err}
		}
	}

	// The storage key is allocated here, never derived from client
	// input.
	key := "drops/" + uuid.NewString()

	hasher := sha256.New()
	src := io.Reader(io.TeeReader(r, hasher))
	if s.cfg.MaxFileSize > 0 {
		src = &cappedReader{r: src, remaining: s.cfg.MaxFileSize, limit: s.cfg.MaxFileSize}
	}

	written, err := s.backend.Save(ctx, key, src)
	if err != nil {
		// A partial object may exist; removal is idempotent either way.
		s.compensate(ctx, key, "save failed")
		var tooLarge *TooLargeError
		if errors.As(err, &tooLarge) {
			return nil, tooLarge
		}
		return nil, &StorageError{Op: "save", Err: err}
	}

	if in.DeclaredSize >= 0 && written != in.DeclaredSize {
		s.compensate(ctx, key, "size mismatch")
		return nil, &IntegrityError{Declared: in.DeclaredSize, Actual: written}
	}

	fileType := strings.TrimSpace(in.FileType)
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	now := time.Now().UTC()
	d := &Drop{
		Slug:        slug,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Password:    in.Password,
		IsPrivate:   in.IsPrivate,
		FileName:    sanitizeFileName(in.FileName),
		FileSize:    written,
		FileType:    fileType,
		FileHash:    hex.EncodeToString(hasher.Sum(nil)),
		StorageType: s.backend.Type(),
		StoragePath: key,
		CreatedTime: now,
		UpdatedTime: now,
	}

	if err := s.store.Create(ctx, d); err != nil {
		s.compensate(ctx, key, "metadata commit failed")
		return nil, err
	}
	return d, nil
}

// compensate rolls back a stored object after a pipeline failure.
// Failures here are logged and swallowed so they never mask the
// original error; an orphaned object is a bounded leak, not a
// correctness hazard. Runs detached from the request context so a
// client disconnect cannot also cancel the cleanup.
func (s *Service) compensate(ctx context.Context, key, reason string) {
	removed, err := s.backend.Delete(context.WithoutCancel(ctx), key)
	if err != nil {
		s.log.Error("compensating delete failed", map[string]any{
			"key":    key,
			"reason": reason,
		}, err)
		return
	}
	s.log.Info("compensating delete", map[string]any{
		"key":     key,
		"reason":  reason,
		"removed": removed,
	})
}

// Get returns a drop's metadata, applying the same access gate as the
// streaming path.
func (s *Service) Get(ctx context.Context, slug, password string, ident *auth.Identity) (*Drop, error) {
	d, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(d, password, ident); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateMeta applies a partial metadata mutation. The stored bytes and
// the slug are immutable.
func (s *Service) UpdateMeta(ctx context.Context, slug string, u Update, ident *auth.Identity) (*Drop, error) {
	if err := requireWriter(ident); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, slug, u)
}

// Delete removes the stored object first (best-effort, logged on
// failure) and then the metadata row.
func (s *Service) Delete(ctx context.Context, slug string, ident *auth.Identity) error {
	if err := requireWriter(ident); err != nil {
		return err
	}

	d, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	if removed, err := s.backend.Delete(ctx, d.StoragePath); err != nil {
		s.log.Error("object delete failed, removing metadata anyway", map[string]any{
			"slug": slug,
			"key":  d.StoragePath,
		}, err)
	} else if !removed {
		s.log.Warn("object already absent on delete", map[string]any{
			"slug": slug,
			"key":  d.StoragePath,
		})
	}

	return s.store.DeleteBySlug(ctx, slug)
}

// List returns a page of drops, newest first, plus the total count.
func (s *Service) List(ctx context.Context, page, pageSize int, ident *auth.Identity) ([]*Drop, int, error) {
	if err := requireWriter(ident); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return s.store.List(ctx, (page-1)*pageSize, pageSize)
}

// CheckSlug reports whether an explicit slug is still free.
func (s *Service) CheckSlug(ctx context.Context, slug string) (bool, error) {
	if !validSlug(slug) {
		return false, &ValidationError{Field: "slug", Reason: "contains invalid characters"}
	}
	_, err := s.store.GetBySlug(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// cappedReader fails the stream once more than limit bytes have been
// consumed, so oversized uploads stop mid-flight instead of filling the
// backend.
type cappedReader struct {
	r         io.Reader
	remaining int64
	limit     int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		// Probe one byte to distinguish "exactly at limit" from over.
		var probe [1]byte
		n, err := c.r.Read(probe[:])
		if n > 0 {
			return 0, &TooLargeError{Limit: c.limit}
		}
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}
