// Package drop implements the core of the file-share service: the Drop
// model, the atomic upload pipeline, the range streaming engine and the
// access gate. HTTP concerns stay outside; all failures surface as the
// typed errors in errors.go.
package drop

import (
	"strings"
	"time"
)

// Field bounds, matching what the metadata schema enforces.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// Drop is the shareable unit: metadata plus the facet of its single
// stored file. StoragePath is backend-internal and never exposed to
// clients.
type Drop struct {
	Slug        string
	Title       string
	Description string
	Password    string
	IsPrivate   bool
	IsFavorite  bool

	FileName    string
	FileSize    int64
	FileType    string
	FileHash    string
	StorageType string
	StoragePath string

	CreatedTime time.Time
	UpdatedTime time.Time
}

// Protected reports whether the Drop requires a password to access.
// Presence of the secret alone toggles protection.
func (d *Drop) Protected() bool { return d.Password != "" }

// CreateInput carries client-supplied metadata for a new Drop. Slug is
// optional; DeclaredSize < 0 means the client did not declare a length
// and the integrity check is skipped.
type CreateInput struct {
	Slug         string
	Title        string
	Description  string
	Password     string
	IsPrivate    bool
	FileName     string
	FileType     string
	DeclaredSize int64
}

// Validate checks the metadata bounds before any bytes are streamed.
func (in *CreateInput) Validate() error {
	if len(in.Title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: "exceeds maximum length"}
	}
	if len(in.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Reason: "exceeds maximum length"}
	}
	if strings.TrimSpace(in.FileName) == "" {
		return &ValidationError{Field: "file_name", Reason: "is required"}
	}
	if in.Slug != "" && !validSlug(in.Slug) {
		return &ValidationError{Field: "slug", Reason: "contains invalid characters"}
	}
	return nil
}

// Update is a partial metadata mutation. Nil fields are left untouched.
// Password set to the empty string clears protection. The stored bytes
// are never affected.
type Update struct {
	Title       *string
	Description *string
	Password    *string
	IsPrivate   *bool
	IsFavorite  *bool
}

// Validate checks the bounds of the fields present in the update.
func (u *Update) Validate() error {
	if u.Title != nil && len(*u.Title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: "exceeds maximum length"}
	}
	if u.Description != nil && len(*u.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Reason: "exceeds maximum length"}
	}
	return nil
}

// sanitizeFileName strips any path components from a client-supplied
// filename. The result is display metadata only; it never becomes a
// storage key.
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
