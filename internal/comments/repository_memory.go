package comments

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var _ Repository = (*MemoryRepository)(nil)

type MemoryRepository struct {
	mu       sync.RWMutex
	comments []Comment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Add seeds a comment. Comments are written by another subsystem, so this is
// only used for development data and tests.
func (r *MemoryRepository) Add(c Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, c)
}

func (r *MemoryRepository) ListByPost(_ context.Context, postID uuid.UUID) ([]Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Comment{}
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b Comment) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
