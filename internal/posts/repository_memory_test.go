package posts

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/categories"
)

// TestMemoryRepository_ListProperties checks, over a random corpus, that
// every page holds at most limit items, every item satisfies the query, and
// the pages together cover exactly the counted posts.
func TestMemoryRepository_ListProperties(t *testing.T) {
	cats := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	authors := []uuid.UUID{uuid.New(), uuid.New()}
	repo := NewMemoryRepository(func(id uuid.UUID) (CategoryRef, bool) {
		return CategoryRef{ID: id}, true
	})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick/2) * time.Minute)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 137 {
		status := Published
		if rng.IntN(3) == 0 {
			status = Draft
		}
		title := fmt.Sprintf("post %d", i)
		if rng.IntN(4) == 0 {
			title += " about trains"
		}
		_, err := repo.Create(context.Background(), &Post{
			Title:      title,
			Content:    "c",
			AuthorID:   authors[rng.IntN(len(authors))],
			CategoryID: cats[rng.IntN(len(cats))],
			Status:     status,
		})
		require.NoError(t, err)
	}

	queries := []Query{
		{Status: Published},
		{Status: Draft},
		{Status: Published, Category: &cats[0]},
		{Status: Published, Author: &authors[1]},
		{Status: Draft, Category: &cats[2], Author: &authors[0]},
		{Status: Published, Search: "TRAINS"},
	}
	for _, base := range queries {
		for _, limit := range []int{1, 7, 10, 100} {
			q := base
			q.Limit = limit
			total, err := repo.Count(context.Background(), q)
			require.NoError(t, err)

			seen := map[uuid.UUID]bool{}
			var prev *Post
			pages := NewPagination(1, limit, total).TotalPages
			for page := 1; page <= pages+1; page++ {
				q.Page = page
				items, err := repo.List(context.Background(), q)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(items), limit)
				if page > pages {
					assert.Empty(t, items, "page past the end")
				}
				for _, p := range items {
					assert.True(t, q.Matches(p, SubstringSearch), "item %q does not match %+v", p.Title, q)
					assert.False(t, seen[p.ID], "duplicate %s", p.ID)
					seen[p.ID] = true
					if prev != nil {
						assert.False(t, p.CreatedAt.After(prev.CreatedAt), "not newest first")
					}
					prev = p
				}
			}
			assert.Equal(t, int(total), len(seen))
		}
	}
}

func TestMemoryRepository_Update(t *testing.T) {
	repo := NewMemoryRepository(func(id uuid.UUID) (CategoryRef, bool) { return CategoryRef{ID: id}, true })
	p, err := repo.Create(context.Background(), &Post{Title: "a", Content: "b", CategoryID: uuid.New(), Status: Draft})
	require.NoError(t, err)

	first := "posts/one.png"
	ref := assetRef(first)
	prev, err := repo.Update(context.Background(), p.ID, Patch{FeaturedImage: &ref})
	require.NoError(t, err)
	assert.Empty(t, prev)

	second := assetRef("posts/two.png")
	prev, err = repo.Update(context.Background(), p.ID, Patch{FeaturedImage: &second})
	require.NoError(t, err)
	assert.Equal(t, first, string(prev))

	_, err = repo.Update(context.Background(), uuid.New(), Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository_GuardCategoryDelete(t *testing.T) {
	cat := uuid.New()
	repo := NewMemoryRepository(func(id uuid.UUID) (CategoryRef, bool) { return CategoryRef{ID: id}, true })

	removed := 0
	remove := func() error {
		removed++
		return nil
	}

	referenced, err := repo.GuardCategoryDelete(cat, remove)
	require.NoError(t, err)
	assert.False(t, referenced)
	assert.Equal(t, 1, removed)

	_, err = repo.Create(context.Background(), &Post{Title: "a", Content: "b", CategoryID: cat, Status: Draft})
	require.NoError(t, err)
	referenced, err = repo.GuardCategoryDelete(cat, remove)
	require.NoError(t, err)
	assert.True(t, referenced)
	assert.Equal(t, 1, removed, "remove must not run for a referenced category")
}

// TestMemoryRepository_CategoryDeleteRace races a post create against the
// delete of its category. Exactly one of them may win.
func TestMemoryRepository_CategoryDeleteRace(t *testing.T) {
	ctx := context.Background()
	cats := categories.NewMemoryRepository()
	repo := NewMemoryRepository(func(id uuid.UUID) (CategoryRef, bool) {
		c, ok := cats.Lookup(id)
		return CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug, Color: c.Color}, ok
	})
	cats.SetDeleteGuard(repo.GuardCategoryDelete)

	for i := range 50 {
		name := fmt.Sprintf("c%d", i)
		c, err := cats.Create(ctx, &categories.Category{Name: name, Slug: name})
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			createErr error
			deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, createErr = repo.Create(ctx, &Post{Title: "t", Content: "c", CategoryID: c.ID, Status: Draft})
		}()
		go func() {
			defer wg.Done()
			deleteErr = cats.Delete(ctx, c.ID)
		}()
		wg.Wait()

		if createErr == nil {
			assert.ErrorIs(t, deleteErr, categories.ErrInUse)
			_, ok := cats.Lookup(c.ID)
			assert.True(t, ok, "category deleted under a post")
		} else {
			assert.ErrorIs(t, createErr, ErrInvalidReference)
			assert.NoError(t, deleteErr)
		}
	}
}

func assetRef(s string) assets.Ref { return assets.Ref(s) }
