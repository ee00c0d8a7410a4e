package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"dropserve/internal/drop"
)

// dropResp is the client-facing view of a Drop. The password and the
// backend storage key are never exposed; protection is reported as a
// flag.
type dropResp struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Protected   bool   `json:"protected"`
	IsPrivate   bool   `json:"is_private"`
	IsFavorite  bool   `json:"is_favorite"`

	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
	FileHash string `json:"file_hash"`

	CreatedTime time.Time `json:"created_time"`
	UpdatedTime time.Time `json:"updated_time"`
}

func toDropResp(d *drop.Drop) dropResp {
	return dropResp{
		Slug:        d.Slug,
		Title:       d.Title,
		Description: d.Description,
		Protected:   d.Protected(),
		IsPrivate:   d.IsPrivate,
		IsFavorite:  d.IsFavorite,
		FileName:    d.FileName,
		FileSize:    d.FileSize,
		FileType:    d.FileType,
		FileHash:    d.FileHash,
		CreatedTime: d.CreatedTime,
		UpdatedTime: d.UpdatedTime,
	}
}

// createDropHandler handles POST /api/drops: a multipart form whose
// metadata fields (slug, title, description, password, is_private)
// precede the final "file" part, so the upload can stream without
// buffering. The optional X-Declared-Size header enables the
// size-integrity check.
func (cfg Config) createDropHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := identityFromContext(r.Context())

		declared := int64(-1)
		if v := r.Header.Get("X-Declared-Size"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				http.Error(w, "invalid X-Declared-Size", http.StatusBadRequest)
				return
			}
			declared = n
		}

		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}

		in := drop.CreateInput{DeclaredSize: declared}
		var filePart io.Reader

		for filePart == nil {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, "bad multipart", http.StatusBadRequest)
				return
			}

			if part.FormName() == "file" {
				in.FileName = part.FileName()
				in.FileType = part.Header.Get("Content-Type")
				filePart = part
				break
			}

			// Metadata fields are small; bound them anyway.
			value, err := io.ReadAll(io.LimitReader(part, 1<<16))
			_ = part.Close()
			if err != nil {
				http.Error(w, "bad multipart", http.StatusBadRequest)
				return
			}
			switch part.FormName() {
			case "slug":
				in.Slug = string(value)
			case "title":
				in.Title = string(value)
			case "description":
				in.Description = string(value)
			case "password":
				in.Password = string(value)
			case "is_private":
				in.IsPrivate = string(value) == "true"
			}
		}

		if filePart == nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}

		d, err := cfg.Drops.Create(r.Context(), in, filePart, ident)
		if err != nil {
			cfg.Metrics.RecordUploadError()
			writeError(w, r, err, -1)
			return
		}

		cfg.Metrics.RecordUpload(d.FileSize)
		writeJSON(w, http.StatusCreated, toDropResp(d))
	}
}

type listResp struct {
	Drops    []dropResp `json:"drops"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// listDropsHandler handles GET /api/drops?page=&page_size= for
// authenticated users.
func (cfg Config) listDropsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

		drops, total, err := cfg.Drops.List(r.Context(), page, pageSize, identityFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err, -1)
			return
		}

		if page < 1 {
			page = 1
		}
		if pageSize < 1 {
			pageSize = drop.DefaultPageSize
		}
		if pageSize > drop.MaxPageSize {
			pageSize = drop.MaxPageSize
		}

		resp := listResp{Drops: make([]dropResp, 0, len(drops)), Total: total, Page: page, PageSize: pageSize}
		for _, d := range drops {
			resp.Drops = append(resp.Drops, toDropResp(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// getDropHandler handles GET /api/drops/{slug}: metadata only, gated
// exactly like the file stream.
func (cfg Config) getDropHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		password := r.URL.Query().Get("password")

		d, err := cfg.Drops.Get(r.Context(), slug, password, identityFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err, -1)
			return
		}
		writeJSON(w, http.StatusOK, toDropResp(d))
	}
}

type updateReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Password    *string `json:"password"`
	IsPrivate   *bool   `json:"is_private"`
	IsFavorite  *bool   `json:"is_favorite"`
}

// updateDropHandler handles PATCH /api/drops/{slug}: partial metadata
// mutation; absent fields stay untouched, password "" clears
// protection.
func (cfg Config) updateDropHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		var req updateReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		d, err := cfg.Drops.UpdateMeta(r.Context(), slug, drop.Update{
			Title:       req.Title,
			Description: req.Description,
			Password:    req.Password,
			IsPrivate:   req.IsPrivate,
			IsFavorite:  req.IsFavorite,
		}, identityFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err, -1)
			return
		}
		writeJSON(w, http.StatusOK, toDropResp(d))
	}
}

// deleteDropHandler handles DELETE /api/drops/{slug}.
func (cfg Config) deleteDropHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		if err := cfg.Drops.Delete(r.Context(), slug, identityFromContext(r.Context())); err != nil {
			writeError(w, r, err, -1)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// checkSlugHandler handles HEAD /api/drops/{slug}/check: 200 if the
// slug is free, 409 if taken.
func (cfg Config) checkSlugHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		free, err := cfg.Drops.CheckSlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			writeError(w, r, err, -1)
			return
		}
		if !free {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// streamDropHandler handles GET /api/drops/{slug}/file, serving the
// whole object or a byte window when a Range header is present.
func (cfg Config) streamDropHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		password := r.URL.Query().Get("password")
		rangeHeader := r.Header.Get("Range")

		st, err := cfg.Drops.Stream(r.Context(), slug, rangeHeader, password, identityFromContext(r.Context()))
		if err != nil {
			cfg.Metrics.RecordDownloadError()
			// 416 responses carry the object size when it is known.
			size := int64(-1)
			if d, derr := cfg.Drops.Get(r.Context(), slug, password, identityFromContext(r.Context())); derr == nil {
				size = d.FileSize
			}
			writeError(w, r, err, size)
			return
		}
		defer func() { _ = st.Body.Close() }()

		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Type", st.FileType)
		w.Header().Set("Content-Length", strconv.FormatInt(st.ContentLength(), 10))
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, st.FileName))
		w.Header().Set("ETag", `"`+st.FileHash+`"`)

		status := http.StatusOK
		if st.Partial() {
			status = http.StatusPartialContent
			w.Header().Set("Content-Range", st.ContentRange())
		}
		w.WriteHeader(status)

		n, _ := io.Copy(w, st.Body)
		cfg.Metrics.RecordDownload(n, st.Partial())
	}
}
