package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"dropserve/internal/drop"
	"dropserve/internal/httprange"
)

// writeJSON renders a success body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the core's typed errors to status codes. This is the
// only place HTTP codes and domain errors meet.
func writeError(w http.ResponseWriter, r *http.Request, err error, objectSize int64) {
	var (
		validation *drop.ValidationError
		integrity  *drop.IntegrityError
		tooLarge   *drop.TooLargeError
		storageErr *drop.StorageError
		metaErr    *drop.MetadataError
	)

	switch {
	case errors.Is(err, drop.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, drop.ErrPasswordInvalid):
		http.Error(w, "invalid password", http.StatusUnauthorized)
	case errors.Is(err, drop.ErrAccessDenied):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, drop.ErrConflict):
		http.Error(w, "slug already exists", http.StatusConflict)
	case errors.Is(err, httprange.ErrNotSatisfiable):
		// RFC 7233: tell the client how large the object actually is.
		if objectSize >= 0 {
			w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(objectSize, 10))
		}
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
	case errors.Is(err, httprange.ErrInvalid):
		http.Error(w, "invalid range", http.StatusBadRequest)
	case errors.As(err, &tooLarge):
		http.Error(w, tooLarge.Error(), http.StatusRequestEntityTooLarge)
	case errors.As(err, &validation):
		http.Error(w, validation.Error(), http.StatusBadRequest)
	case errors.As(err, &integrity):
		http.Error(w, integrity.Error(), http.StatusBadRequest)
	case errors.As(err, &storageErr):
		http.Error(w, "storage error", http.StatusBadGateway)
	case errors.As(err, &metaErr):
		http.Error(w, "db error", http.StatusInternalServerError)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
