package drop

import (
	"context"
	"errors"
	"io"

	"dropserve/internal/auth"
	"dropserve/internal/httprange"
	"dropserve/internal/storage"
)

// Stream is the result of resolving a download: the byte window, its
// metadata, and the lazy body covering exactly [Range.Start,
// Range.End]. The caller owns Body and controls chunking to the
// transport; this engine never writes to the network.
type Stream struct {
	Body  io.ReadCloser
	Range httprange.Range
	Size  int64

	FileName string
	FileType string
	FileHash string
}

// Partial reports whether the window is a proper subset of the object,
// i.e. the response should be 206 with a Content-Range header.
func (st *Stream) Partial() bool { return st.Range.Partial }

// ContentLength is the number of bytes Body will yield.
func (st *Stream) ContentLength() int64 { return st.Range.Length() }

// ContentRange renders the Content-Range header value for partial
// responses.
func (st *Stream) ContentRange() string { return st.Range.ContentRange(st.Size) }

// Stream resolves a drop and an optional Range header into a byte
// stream plus response metadata. Range errors bubble up typed
// (httprange.ErrInvalid, httprange.ErrNotSatisfiable); a missing
// storage object behind a valid drop row is data corruption and
// surfaces as a StorageError, never as ErrNotFound.
func (s *Service) Stream(ctx context.Context, slug, rangeHeader, password string, ident *auth.Identity) (*Stream, error) {
	d, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(d, password, ident); err != nil {
		return nil, err
	}

	rg, err := httprange.Parse(rangeHeader, d.FileSize, s.cfg.RangeCap)
	if err != nil {
		return nil, err
	}

	body, err := s.backend.ReadRange(ctx, d.StoragePath, rg.Start, rg.End)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &StorageError{Op: "read", Err: errors.New("object missing for committed drop " + slug)}
		}
		return nil, &StorageError{Op: "read", Err: err}
	}

	return &Stream{
		Body:     body,
		Range:    rg,
		Size:     d.FileSize,
		FileName: d.FileName,
		FileType: d.FileType,
		FileHash: d.FileHash,
	}, nil
}
