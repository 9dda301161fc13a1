package categories

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Repository = (*MemoryRepository)(nil)

type MemoryRepository struct {
	mu         sync.RWMutex
	categories map[uuid.UUID]Category
	guard      DeleteGuard
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		categories: make(map[uuid.UUID]Category),
		guard:      func(_ uuid.UUID, remove func() error) (bool, error) { return false, remove() },
		now:        time.Now,
	}
}

// DeleteGuard runs remove unless a post still references id, and reports
// whether it refused. The post store holds its own lock across the check and
// remove, so no post can be written into the category in between.
type DeleteGuard func(id uuid.UUID, remove func() error) (referenced bool, err error)

// SetDeleteGuard installs the guard Delete runs through.
func (r *MemoryRepository) SetDeleteGuard(fn DeleteGuard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guard = fn
}

// Lookup returns a category by id without a context, for wiring into other
// in-memory stores.
func (r *MemoryRepository) Lookup(id uuid.UUID) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	return c, ok
}

func (r *MemoryRepository) List(context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Category, error) {
	c, ok := r.Lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// conflicts reports whether name or slug is taken by a category other than
// self. Callers must hold r.mu.
func (r *MemoryRepository) conflicts(self uuid.UUID, name, slug string) bool {
	for id, c := range r.categories {
		if id != self && (c.Name == name || c.Slug == slug) {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Create(_ context.Context, c *Category) (*Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts(uuid.Nil, c.Name, c.Slug) {
		return nil, ErrDuplicateSlug
	}
	now := r.now()
	stored := *c
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.categories[stored.ID] = stored
	return &stored, nil
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, patch Patch) (*Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Slug != nil {
		c.Slug = *patch.Slug
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	if r.conflicts(id, c.Name, c.Slug) {
		return nil, ErrDuplicateSlug
	}
	c.UpdatedAt = r.now()
	r.categories[id] = c
	return &c, nil
}

// Delete goes through the guard without holding r.mu. The post store locks
// itself first and then this store, the same order it uses when resolving
// categories.
func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.RLock()
	guard := r.guard
	r.mu.RUnlock()

	referenced, err := guard(id, func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.categories[id]; !ok {
			return ErrNotFound
		}
		delete(r.categories, id)
		return nil
	})
	if referenced {
		return ErrInUse
	}
	return err
}

func (r *MemoryRepository) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.Lookup(id)
	return ok, nil
}
