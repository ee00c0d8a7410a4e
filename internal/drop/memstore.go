package drop

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store with the same atomicity guarantees as
// the Postgres implementation, including slug uniqueness under
// concurrent creates. Used by tests and local development.
type MemStore struct {
	mu    sync.Mutex
	drops map[string]*Drop
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{drops: make(map[string]*Drop)}
}

func (s *MemStore) Create(ctx context.Context, d *Drop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.drops[d.Slug]; exists {
		return ErrConflict
	}
	cp := *d
	s.drops[d.Slug] = &cp
	return nil
}

func (s *MemStore) GetBySlug(ctx context.Context, slug string) (*Drop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drops[slug]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemStore) Update(ctx context.Context, slug string, u Update) (*Drop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drops[slug]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Title != nil {
		d.Title = *u.Title
	}
	if u.Description != nil {
		d.Description = *u.Description
	}
	if u.Password != nil {
		d.Password = *u.Password
	}
	if u.IsPrivate != nil {
		d.IsPrivate = *u.IsPrivate
	}
	if u.IsFavorite != nil {
		d.IsFavorite = *u.IsFavorite
	}
	d.UpdatedTime = time.Now().UTC()
	cp := *d
	return &cp, nil
}

func (s *MemStore) DeleteBySlug(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drops[slug]; !ok {
		return ErrNotFound
	}
	delete(s.drops, slug)
	return nil
}

func (s *MemStore) List(ctx context.Context, offset, limit int) ([]*Drop, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*Drop, 0, len(s.drops))
	for _, d := range s.drops {
		cp := *d
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedTime.After(all[j].CreatedTime)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}
