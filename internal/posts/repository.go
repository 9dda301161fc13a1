package posts

import (
	"context"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/assets"
)

// Repository persists posts. Reads resolve the author and category display
// subsets; GetDetail also resolves the author bio.
type Repository interface {
	List(ctx context.Context, q Query) ([]*Post, error)
	Count(ctx context.Context, q Query) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Post, error)
	Create(ctx context.Context, p *Post) (*Post, error)
	// Update applies patch in one statement and returns the featured image
	// the post held right before the write.
	Update(ctx context.Context, id uuid.UUID, patch Patch) (assets.Ref, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) (int64, error)
	ToggleLike(ctx context.Context, postID, userID uuid.UUID) (LikeResult, error)
}
