package posts

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/users"
)

var _ Repository = (*MemoryRepository)(nil)

// CategoryLookup resolves the display subset of a category for the memory
// backend.
type CategoryLookup func(id uuid.UUID) (CategoryRef, bool)

// MemoryRepository keeps posts in process. All mutations happen under one
// mutex, which makes views and likes updates atomic.
type MemoryRepository struct {
	mu         sync.RWMutex
	posts      map[uuid.UUID]*Post
	authors    map[uuid.UUID]users.Author
	categories CategoryLookup
	search     SearchPredicate
	now        func() time.Time
}

func NewMemoryRepository(categories CategoryLookup) *MemoryRepository {
	if categories == nil {
		categories = func(uuid.UUID) (CategoryRef, bool) { return CategoryRef{}, false }
	}
	return &MemoryRepository{
		posts:      make(map[uuid.UUID]*Post),
		authors:    make(map[uuid.UUID]users.Author),
		categories: categories,
		search:     SubstringSearch,
		now:        time.Now,
	}
}

// AddAuthor seeds a user record so reads can resolve it.
func (r *MemoryRepository) AddAuthor(a users.Author) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authors[a.ID] = a
}

// GuardCategoryDelete calls remove unless a post belongs to categoryID. The
// write lock is held throughout, so Create and Update cannot attach a post to
// the category between the check and the removal.
func (r *MemoryRepository) GuardCategoryDelete(categoryID uuid.UUID, remove func() error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.CategoryID == categoryID {
			return true, nil
		}
	}
	return false, remove()
}

func (r *MemoryRepository) List(_ context.Context, q Query) ([]*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.matching(q)
	slices.SortFunc(matched, func(a, b *Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})

	start := min(q.Offset(), len(matched))
	end := min(start+q.Limit, len(matched))
	out := make([]*Post, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, r.resolve(p, false))
	}
	return out, nil
}

func (r *MemoryRepository) Count(_ context.Context, q Query) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.matching(q))), nil
}

func (r *MemoryRepository) matching(q Query) []*Post {
	var out []*Post
	for _, p := range r.posts {
		if q.Matches(p, r.search) {
			out = append(out, p)
		}
	}
	return out
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Post, error) {
	return r.get(id, false)
}

func (r *MemoryRepository) GetDetail(_ context.Context, id uuid.UUID) (*Post, error) {
	return r.get(id, true)
}

func (r *MemoryRepository) get(id uuid.UUID, detail bool) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.resolve(p, detail), nil
}

// Create and Update check the category under the write lock; see
// GuardCategoryDelete.
func (r *MemoryRepository) Create(_ context.Context, p *Post) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories(p.CategoryID); !ok {
		return nil, ErrInvalidReference
	}

	now := r.now()
	stored := clonePost(p)
	stored.ID = uuid.New()
	stored.Likes = []uuid.UUID{}
	stored.Views = 0
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.posts[stored.ID] = stored
	return r.resolve(stored, false), nil
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, patch Patch) (assets.Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if patch.CategoryID != nil {
		if _, ok := r.categories(*patch.CategoryID); !ok {
			return "", ErrInvalidReference
		}
	}

	p, ok := r.posts[id]
	if !ok {
		return "", ErrNotFound
	}
	var previous assets.Ref
	if p.FeaturedImage != nil {
		previous = *p.FeaturedImage
	}

	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Excerpt != nil {
		p.Excerpt = *patch.Excerpt
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.Tags != nil {
		p.Tags = slices.Clone(*patch.Tags)
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.FeaturedImage != nil {
		ref := *patch.FeaturedImage
		p.FeaturedImage = &ref
	}
	p.UpdatedAt = r.now()
	return previous, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *MemoryRepository) IncrementViews(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return 0, ErrNotFound
	}
	p.Views++
	return p.Views, nil
}

func (r *MemoryRepository) ToggleLike(_ context.Context, postID, userID uuid.UUID) (LikeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return LikeResult{}, ErrNotFound
	}
	if i := slices.Index(p.Likes, userID); i >= 0 {
		p.Likes = slices.Delete(p.Likes, i, i+1)
		return LikeResult{IsLiked: false, LikesCount: len(p.Likes)}, nil
	}
	p.Likes = append(p.Likes, userID)
	return LikeResult{IsLiked: true, LikesCount: len(p.Likes)}, nil
}

// resolve returns a copy of p with author and category attached. Callers
// must hold r.mu.
func (r *MemoryRepository) resolve(p *Post, detail bool) *Post {
	out := clonePost(p)
	author, ok := r.authors[p.AuthorID]
	if !ok {
		author = users.Author{ID: p.AuthorID}
	}
	if !detail {
		author.Bio = ""
	}
	out.Author = &author
	if c, ok := r.categories(p.CategoryID); ok {
		out.Category = &c
	}
	out.LikesCount = len(out.Likes)
	return out
}

func clonePost(p *Post) *Post {
	out := *p
	out.Tags = slices.Clone(p.Tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	out.Likes = slices.Clone(p.Likes)
	if out.Likes == nil {
		out.Likes = []uuid.UUID{}
	}
	if p.FeaturedImage != nil {
		ref := *p.FeaturedImage
		out.FeaturedImage = &ref
	}
	out.Author = nil
	out.Category = nil
	out.Comments = nil
	return &out
}
