package config

import (
	"fmt"
	"strings"
)

// ValidationError is one configuration problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the whole configuration and reports every violation
// at once rather than failing on the first.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, message string) {
		errs = append(errs, ValidationError{Field: field, Message: message})
	}

	if c.Addr == "" {
		add("addr", "must not be empty")
	}
	if c.DatabaseURL == "" {
		add("database_url", "must be set (DATABASE_URL)")
	}

	switch c.StorageBackend {
	case "local":
		if c.LocalDir == "" {
			add("local_dir", "must be set for the local backend")
		}
	case "minio":
		if c.MinioEndpoint == "" {
			add("minio_endpoint", "must be set for the minio backend")
		}
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			add("minio_access_key", "access and secret keys must be set for the minio backend")
		}
		if c.MinioBucket == "" {
			add("minio_bucket", "must be set for the minio backend")
		}
	default:
		add("storage_backend", `must be "local" or "minio"`)
	}

	if c.MaxFileSize < 0 {
		add("max_file_size", "must not be negative")
	}
	if c.RangeCap < 0 {
		add("range_cap", "must not be negative")
	}

	if c.AdminPass == "" {
		add("admin_pass", "must be set (DROP_ADMIN_PASS)")
	}
	if len(c.TokenSecret) < 32 {
		add("token_secret", "must be at least 32 characters (DROP_TOKEN_SECRET)")
	}
	if c.TokenTTL <= 0 {
		add("token_ttl", "must be positive")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
