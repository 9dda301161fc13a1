package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypePostPublished = "post.published"
	TypeAssetOrphaned = "asset.orphaned"
)

type PostPublishedPayload struct {
	PostID     uuid.UUID `json:"post_id"`
	Title      string    `json:"title"`
	CategoryID uuid.UUID `json:"category_id"`
	AuthorID   uuid.UUID `json:"author_id"`
}

type PostPublished struct {
	Type      string               `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	Payload   PostPublishedPayload `json:"payload"`
}

func NewPostPublished(postID uuid.UUID, title string, categoryID, authorID uuid.UUID) PostPublished {
	return PostPublished{
		Type:      TypePostPublished,
		Timestamp: time.Now().UTC(),
		Payload: PostPublishedPayload{
			PostID:     postID,
			Title:      title,
			CategoryID: categoryID,
			AuthorID:   authorID,
		},
	}
}

// AssetOrphanedPayload names a stored asset whose owning post is gone but
// whose deletion failed.
type AssetOrphanedPayload struct {
	Ref    string    `json:"ref"`
	PostID uuid.UUID `json:"post_id"`
}

type AssetOrphaned struct {
	Type      string               `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	Payload   AssetOrphanedPayload `json:"payload"`
}

func NewAssetOrphaned(ref string, postID uuid.UUID) AssetOrphaned {
	return AssetOrphaned{
		Type:      TypeAssetOrphaned,
		Timestamp: time.Now().UTC(),
		Payload:   AssetOrphanedPayload{Ref: ref, PostID: postID},
	}
}
