package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio stores objects in a single MinIO (or any S3-compatible) bucket.
// Range reads use the store's native range GET; Save streams with an
// unknown length, letting the client library handle multipart chunking.
type Minio struct {
	client *minio.Client
	bucket string
}

// MinioConfig carries the connection settings for a MinIO backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// NewMinio connects to the store and verifies the bucket exists.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: minio bucket check: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("storage: minio bucket does not exist: %s", cfg.Bucket)
	}

	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

// normaliseEndpoint accepts either "minio:9000" or
// "http(s)://minio:9000" and returns the host plus the TLS flag.
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("storage: empty minio endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("storage: invalid minio endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("storage: minio endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme: treat as host:port, insecure by default for local MinIO.
	return raw, false, nil
}

func (m *Minio) Type() string { return TypeMinio }

func (m *Minio) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	if !validKey(key) {
		return 0, fmt.Errorf("storage: invalid key %q", key)
	}
	// Size -1: stream with unknown length.
	info, err := m.client.PutObject(ctx, m.bucket, key, r, -1, minio.PutObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("storage: minio put %q: %w", key, err)
	}
	return info.Size, nil
}

func (m *Minio) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	return m.ReadRange(ctx, key, 0, -1)
}

func (m *Minio) ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("storage: invalid key %q", key)
	}

	opts := minio.GetObjectOptions{}
	switch {
	case end >= 0:
		if err := opts.SetRange(start, end); err != nil {
			return nil, fmt.Errorf("storage: minio range: %w", err)
		}
	case start > 0:
		// end 0 means "from start to the last byte" in the client API.
		if err := opts.SetRange(start, 0); err != nil {
			return nil, fmt.Errorf("storage: minio range: %w", err)
		}
	}

	obj, err := m.client.GetObject(ctx, m.bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: minio get %q: %w", key, err)
	}

	// GetObject is lazy; Stat forces an early error for a missing key.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isMinioNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: minio stat %q: %w", key, err)
	}
	return obj, nil
}

func (m *Minio) Delete(ctx context.Context, key string) (bool, error) {
	if !validKey(key) {
		return false, fmt.Errorf("storage: invalid key %q", key)
	}

	// RemoveObject succeeds on absent keys, so probe first to keep the
	// idempotent removed/not-removed contract.
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: minio stat %q: %w", key, err)
	}

	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("storage: minio delete %q: %w", key, err)
	}
	return true, nil
}

func (m *Minio) Exists(ctx context.Context, key string) (bool, error) {
	if !validKey(key) {
		return false, fmt.Errorf("storage: invalid key %q", key)
	}
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: minio stat %q: %w", key, err)
	}
	return true, nil
}

func (m *Minio) Size(ctx context.Context, key string) (int64, error) {
	if !validKey(key) {
		return 0, fmt.Errorf("storage: invalid key %q", key)
	}
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("storage: minio stat %q: %w", key, err)
	}
	return info.Size, nil
}

// Move copies the object to the new key then removes the old one; S3
// stores have no native rename.
func (m *Minio) Move(ctx context.Context, oldKey, newKey string) error {
	if !validKey(oldKey) || !validKey(newKey) {
		return fmt.Errorf("storage: invalid key")
	}

	src := minio.CopySrcOptions{Bucket: m.bucket, Object: oldKey}
	dst := minio.CopyDestOptions{Bucket: m.bucket, Object: newKey}
	if _, err := m.client.CopyObject(ctx, dst, src); err != nil {
		if isMinioNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("storage: minio copy %q to %q: %w", oldKey, newKey, err)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, oldKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: minio remove after copy %q: %w", oldKey, err)
	}
	return nil
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
