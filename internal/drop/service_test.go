package drop

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropserve/internal/auth"
	"dropserve/internal/logging"
	"dropserve/internal/storage"
)

var writer = &auth.Identity{Subject: "admin", CanRead: true, CanWrite: true}

func newTestService(t *testing.T, cfg Config) (*Service, *MemStore, *trackingBackend) {
	t.Helper()
	store := NewMemStore()
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	backend := &trackingBackend{Backend: local}
	log := logging.NewWithOutput(io.Discard, logging.LevelError, true)
	return NewService(store, backend, log, cfg), store, backend
}

// trackingBackend records every key the pipeline saves, so tests can
// verify compensating deletes without knowledge of key allocation.
type trackingBackend struct {
	storage.Backend

	mu   sync.Mutex
	keys []string
}

func (b *trackingBackend) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	b.mu.Lock()
	b.keys = append(b.keys, key)
	b.mu.Unlock()
	return b.Backend.Save(ctx, key, r)
}

func (b *trackingBackend) savedKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.keys...)
}

func TestCreateRoundTrip(t *testing.T) {
	svc, _, backend := newTestService(t, Config{})
	ctx := context.Background()

	payload := bytes.Repeat([]byte("drop"), 1024)
	sum := sha256.Sum256(payload)

	d, err := svc.Create(ctx, CreateInput{
		Title:        "release notes",
		FileName:     "notes.txt",
		FileType:     "text/plain",
		DeclaredSize: int64(len(payload)),
	}, bytes.NewReader(payload), writer)
	require.NoError(t, err)

	assert.NotEmpty(t, d.Slug)
	assert.Equal(t, int64(len(payload)), d.FileSize)
	assert.Equal(t, hex.EncodeToString(sum[:]), d.FileHash)
	assert.Equal(t, storage.TypeLocal, d.StorageType)
	assert.True(t, strings.HasPrefix(d.StoragePath, "drops/"))

	rc, err := backend.Read(ctx, d.StoragePath)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Round trip through Get with the same identity rules.
	found, err := svc.Get(ctx, d.Slug, "", nil)
	require.NoError(t, err)
	assert.Equal(t, d.Slug, found.Slug)
}

func TestCreateExplicitSlug(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{
		Slug:         "my-release",
		FileName:     "a.bin",
		DeclaredSize: -1,
	}, strings.NewReader("abc"), writer)
	require.NoError(t, err)
	assert.Equal(t, "my-release", d.Slug)

	_, err = svc.Create(ctx, CreateInput{
		Slug:         "my-release",
		FileName:     "b.bin",
		DeclaredSize: -1,
	}, strings.NewReader("xyz"), writer)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateSizeMismatchRollsBack(t *testing.T) {
	svc, store, backend := newTestService(t, Config{})
	ctx := context.Background()

	payload := make([]byte, 500)
	_, err := svc.Create(ctx, CreateInput{
		FileName:     "short.bin",
		DeclaredSize: 1000,
	}, bytes.NewReader(payload), writer)

	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, int64(1000), integrity.Declared)
	assert.Equal(t, int64(500), integrity.Actual)

	// Nothing half-created: no row, no object.
	_, total, err := store.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assertNoObjects(t, backend, ctx)
}

func TestCreateDeclaredSizeAbsentSkipsCheck(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	d, err := svc.Create(context.Background(), CreateInput{
		FileName:     "stream.bin",
		DeclaredSize: -1,
	}, strings.NewReader("whatever length"), writer)
	require.NoError(t, err)
	assert.Equal(t, int64(len("whatever length")), d.FileSize)
}

func TestCreateTooLargeRollsBack(t *testing.T) {
	svc, store, backend := newTestService(t, Config{MaxFileSize: 100})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		FileName:     "big.bin",
		DeclaredSize: -1,
	}, bytes.NewReader(make([]byte, 101)), writer)

	var tooLarge *TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(100), tooLarge.Limit)

	_, total, err := store.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assertNoObjects(t, backend, ctx)
}

func TestCreateExactlyAtLimit(t *testing.T) {
	svc, _, _ := newTestService(t, Config{MaxFileSize: 100})

	d, err := svc.Create(context.Background(), CreateInput{
		FileName:     "edge.bin",
		DeclaredSize: 100,
	}, bytes.NewReader(make([]byte, 100)), writer)
	require.NoError(t, err)
	assert.Equal(t, int64(100), d.FileSize)
}

func TestCreateMetadataFailureRollsBack(t *testing.T) {
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	backend := &trackingBackend{Backend: local}
	log := logging.NewWithOutput(io.Discard, logging.LevelError, true)
	svc := NewService(&failingStore{Store: NewMemStore()}, backend, log, Config{})
	ctx := context.Background()

	_, err = svc.Create(ctx, CreateInput{
		FileName:     "doomed.bin",
		DeclaredSize: -1,
	}, strings.NewReader("payload"), writer)
	require.Error(t, err)

	// The stored object must have been compensated away.
	assertNoObjects(t, backend, ctx)
}

func TestCreateConcurrentSameSlug(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, CreateInput{
				Slug:         "contested",
				FileName:     "f.bin",
				DeclaredSize: -1,
			}, strings.NewReader("payload"), writer)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, winners, "exactly one create must win the slug")
}

func TestCreateRequiresWriter(t *testing.T) {
	svc, store, backend := newTestService(t, Config{})
	ctx := context.Background()

	in := CreateInput{FileName: "f", DeclaredSize: -1}

	_, err := svc.Create(ctx, in, strings.NewReader("x"), nil)
	assert.ErrorIs(t, err, ErrAccessDenied)

	reader := &auth.Identity{Subject: "ro", CanRead: true}
	_, err = svc.Create(ctx, in, strings.NewReader("x"), reader)
	assert.ErrorIs(t, err, ErrAccessDenied)

	// The gate fires before any bytes are consumed or rows written.
	_, total, err := store.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, backend.savedKeys())
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing filename", CreateInput{DeclaredSize: -1}},
		{"title too long", CreateInput{FileName: "a", Title: strings.Repeat("x", MaxTitleLength+1), DeclaredSize: -1}},
		{"description too long", CreateInput{FileName: "a", Description: strings.Repeat("x", MaxDescriptionLength+1), DeclaredSize: -1}},
		{"bad slug", CreateInput{FileName: "a", Slug: "has space", DeclaredSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in, strings.NewReader("x"), writer)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestCreateSanitizesFileName(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	d, err := svc.Create(context.Background(), CreateInput{
		FileName:     "../../etc/passwd",
		DeclaredSize: -1,
	}, strings.NewReader("x"), writer)
	require.NoError(t, err)
	assert.Equal(t, "passwd", d.FileName)
	assert.NotContains(t, d.StoragePath, "passwd")
}

func TestDeleteRemovesObjectAndRow(t *testing.T) {
	svc, store, backend := newTestService(t, Config{})
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{FileName: "f", DeclaredSize: -1}, strings.NewReader("x"), writer)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, d.Slug, writer))

	_, err = store.GetBySlug(ctx, d.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
	exists, err := backend.Exists(ctx, d.StoragePath)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, svc.Delete(ctx, d.Slug, writer), ErrNotFound)
}

func TestDeleteRequiresWriter(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{FileName: "f", DeclaredSize: -1}, strings.NewReader("x"), writer)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, d.Slug, nil), ErrAccessDenied)
	reader := &auth.Identity{Subject: "ro", CanRead: true}
	assert.ErrorIs(t, svc.Delete(ctx, d.Slug, reader), ErrAccessDenied)
}

func TestUpdateMeta(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{FileName: "f", Title: "old", DeclaredSize: -1}, strings.NewReader("x"), writer)
	require.NoError(t, err)

	title := "new title"
	fav := true
	updated, err := svc.UpdateMeta(ctx, d.Slug, Update{Title: &title, IsFavorite: &fav}, writer)
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.True(t, updated.IsFavorite)
	assert.Equal(t, d.FileHash, updated.FileHash)

	_, err = svc.UpdateMeta(ctx, d.Slug, Update{}, nil)
	assert.ErrorIs(t, err, ErrAccessDenied)

	long := strings.Repeat("x", MaxTitleLength+1)
	_, err = svc.UpdateMeta(ctx, d.Slug, Update{Title: &long}, writer)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestListPaging(t *testing.T) {
	svc, store, _ := newTestService(t, Config{})
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 25; i++ {
		require.NoError(t, store.Create(ctx, &Drop{
			Slug:        "drop-" + string(rune('a'+i)),
			FileName:    "f",
			CreatedTime: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, total, err := svc.List(ctx, 1, 10, writer)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, page, 10)
	// Newest first.
	assert.Equal(t, "drop-"+string(rune('a'+24)), page[0].Slug)

	page, _, err = svc.List(ctx, 3, 10, writer)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	page, _, err = svc.List(ctx, 9, 10, writer)
	require.NoError(t, err)
	assert.Empty(t, page)

	// Out-of-range knobs fall back to sane values.
	page, _, err = svc.List(ctx, 0, 0, writer)
	require.NoError(t, err)
	assert.Len(t, page, DefaultPageSize)

	_, _, err = svc.List(ctx, 1, 10, nil)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCheckSlug(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	free, err := svc.CheckSlug(ctx, "unused")
	require.NoError(t, err)
	assert.True(t, free)

	_, err = svc.Create(ctx, CreateInput{Slug: "used", FileName: "f", DeclaredSize: -1}, strings.NewReader("x"), writer)
	require.NoError(t, err)

	free, err = svc.CheckSlug(ctx, "used")
	require.NoError(t, err)
	assert.False(t, free)

	_, err = svc.CheckSlug(ctx, "not ok!")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

// failingStore lets every read through but rejects row creation, for
// exercising the compensating delete after a metadata failure.
type failingStore struct {
	Store
}

func (f *failingStore) Create(ctx context.Context, d *Drop) error {
	return &MetadataError{Op: "create", Err: errors.New("connection lost")}
}

func assertNoObjects(t *testing.T, backend *trackingBackend, ctx context.Context) {
	t.Helper()
	for _, key := range backend.savedKeys() {
		exists, err := backend.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, "object %q must have been rolled back", key)
	}
}
