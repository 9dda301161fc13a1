package comments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoFixture seeds posts and comments the way each backend stores them.
type repoFixture struct {
	repo    Repository
	newPost func(t *testing.T) (postID, authorID uuid.UUID)
	add     func(t *testing.T, postID, authorID uuid.UUID, content string, at time.Time)
}

func uniqueName(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func testRepository(t *testing.T, f repoFixture) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	postID, author := f.newPost(t)
	otherID, _ := f.newPost(t)
	f.add(t, postID, author, "second", base.Add(time.Hour))
	f.add(t, otherID, author, "elsewhere", base)
	f.add(t, postID, author, "first", base)

	got, err := f.repo.ListByPost(ctx, postID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	for _, c := range got {
		assert.Equal(t, postID, c.PostID)
		assert.Equal(t, author, c.Author.ID)
		assert.NotEmpty(t, c.Author.Username)
		assert.NotEqual(t, uuid.Nil, c.ID)
	}

	none, err := f.repo.ListByPost(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
