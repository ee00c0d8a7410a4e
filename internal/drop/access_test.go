package drop

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropserve/internal/auth"
)

func TestAuthorizeOrdering(t *testing.T) {
	cfg := Config{PasswordProtection: true, RequireAuth: true}
	svc, _, _ := newTestService(t, cfg)

	reader := &auth.Identity{Subject: "viewer", CanRead: true}

	tests := []struct {
		name     string
		drop     Drop
		password string
		ident    *auth.Identity
		want     error
	}{
		{"public open drop", Drop{}, "", nil, nil},
		{"private without identity", Drop{IsPrivate: true}, "", nil, ErrNotFound},
		{"private with read identity", Drop{IsPrivate: true}, "", reader, nil},
		{"private without read capability", Drop{IsPrivate: true}, "", &auth.Identity{Subject: "none"}, ErrNotFound},
		{"protected missing password", Drop{Password: "s3cret"}, "", nil, ErrPasswordInvalid},
		{"protected wrong password", Drop{Password: "s3cret"}, "nope", nil, ErrPasswordInvalid},
		{"protected correct password", Drop{Password: "s3cret"}, "s3cret", nil, nil},
		// The privacy check runs first: a private protected drop with
		// the right password but no identity still reads as absent.
		{"private and protected, password only", Drop{IsPrivate: true, Password: "s3cret"}, "s3cret", nil, ErrNotFound},
		{"private and protected, identity only", Drop{IsPrivate: true, Password: "s3cret"}, "", reader, ErrPasswordInvalid},
		{"private and protected, both", Drop{IsPrivate: true, Password: "s3cret"}, "s3cret", reader, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.authorize(&tt.drop, tt.password, tt.ident)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestAuthorizeDisabledToggles(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	d := &Drop{IsPrivate: true, Password: "s3cret"}
	assert.NoError(t, svc.authorize(d, "", nil),
		"disabled toggles must bypass both gate axes")
}

func TestGetAppliesGate(t *testing.T) {
	svc, store, _ := newTestService(t, Config{PasswordProtection: true, RequireAuth: true})
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Drop{Slug: "hidden", IsPrivate: true, FileName: "f"}))

	_, err := svc.Get(ctx, "hidden", "", nil)
	assert.ErrorIs(t, err, ErrNotFound,
		"a private drop must be indistinguishable from a missing one")

	got, err := svc.Get(ctx, "hidden", "", &auth.Identity{Subject: "v", CanRead: true})
	require.NoError(t, err)
	assert.Equal(t, "hidden", got.Slug)
}

func TestSlugGeneration(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		d, err := svc.Create(ctx, CreateInput{FileName: "f", DeclaredSize: -1}, strings.NewReader("x"), writer)
		require.NoError(t, err)
		assert.Len(t, d.Slug, slugLength)
		assert.True(t, validSlug(d.Slug), "generated slug %q must satisfy its own charset", d.Slug)
		assert.False(t, seen[d.Slug], "slug %q generated twice", d.Slug)
		seen[d.Slug] = true
	}
}

func TestValidSlug(t *testing.T) {
	valid := []string{"a", "my-release", "My_Release_2", "abc123", strings.Repeat("a", 64)}
	invalid := []string{"", "has space", "slash/inside", "q?uery", "dot.ted", strings.Repeat("a", 65)}

	for _, s := range valid {
		assert.True(t, validSlug(s), "%q should be valid", s)
	}
	for _, s := range invalid {
		assert.False(t, validSlug(s), "%q should be invalid", s)
	}
}
