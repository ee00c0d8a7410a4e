package drop

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const (
	// slugLength is the length of generated human-friendly slugs.
	slugLength = 12

	// slugAttempts bounds collision retries before falling back to a
	// guaranteed-unique random identifier.
	slugAttempts = 10
)

// validSlug accepts the URL-safe alphabet generated slugs use; explicit
// client slugs must fit the same shape.
func validSlug(s string) bool {
	if len(s) == 0 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// randomSlug returns a fresh URL-safe candidate of slugLength chars.
func randomSlug() (string, error) {
	b := make([]byte, slugLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:slugLength], nil
}

// generateSlug produces a slug that is unused at generation time. After
// slugAttempts collisions it falls back to a UUID, which cannot
// realistically collide.
func generateSlug(ctx context.Context, store Store) (string, error) {
	for i := 0; i < slugAttempts; i++ {
		candidate, err := randomSlug()
		if err != nil {
			return "", err
		}
		_, err = store.GetBySlug(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return uuid.NewString(), nil
}
