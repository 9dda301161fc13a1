// Package comments exposes the read-only comment collection attached to
// single-post reads.
package comments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/users"
)

type Comment struct {
	ID        uuid.UUID    `json:"id"`
	PostID    uuid.UUID    `json:"post_id"`
	Author    users.Author `json:"author"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// Repository lists comments oldest first.
type Repository interface {
	ListByPost(ctx context.Context, postID uuid.UUID) ([]Comment, error)
}
