package posts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/comments"
	"github.com/jeremyjsx/inkwell/internal/users"
)

type Status string

const (
	Draft     Status = "draft"
	Published Status = "published"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case Draft, Published:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// CategoryRef is the display subset of a category embedded in posts.
type CategoryRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Slug  string    `json:"slug"`
	Color string    `json:"color"`
}

type Post struct {
	ID               uuid.UUID          `json:"id"`
	Title            string             `json:"title"`
	Content          string             `json:"content"`
	Excerpt          string             `json:"excerpt"`
	AuthorID         uuid.UUID          `json:"-"`
	CategoryID       uuid.UUID          `json:"-"`
	Author           *users.Author      `json:"author"`
	Category         *CategoryRef       `json:"category"`
	Tags             []string           `json:"tags"`
	Status           Status             `json:"status"`
	FeaturedImage    *assets.Ref        `json:"featured_image"`
	FeaturedImageURL string             `json:"featured_image_url,omitempty"`
	Likes            []uuid.UUID        `json:"likes"`
	LikesCount       int                `json:"likes_count"`
	Views            int64              `json:"views"`
	Comments         []comments.Comment `json:"comments,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Patch carries the fields of a partial update. Nil means unchanged.
type Patch struct {
	Title         *string
	Content       *string
	Excerpt       *string
	CategoryID    *uuid.UUID
	Tags          *[]string
	Status        *Status
	FeaturedImage *assets.Ref
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Excerpt == nil && p.CategoryID == nil &&
		p.Tags == nil && p.Status == nil && p.FeaturedImage == nil
}

// CreateInput is the client-writable subset of a new post. Tags arrive as a
// comma-separated list.
type CreateInput struct {
	Title    string `json:"title" validate:"required,min=1,max=100"`
	Content  string `json:"content" validate:"required"`
	Excerpt  string `json:"excerpt" validate:"max=200"`
	Category string `json:"category" validate:"required,uuid"`
	Tags     string `json:"tags"`
	Status   string `json:"status" validate:"omitempty,oneof=draft published"`
}

type UpdateInput struct {
	Title    *string `json:"title" validate:"omitnil,min=1,max=100"`
	Content  *string `json:"content" validate:"omitnil,min=1"`
	Excerpt  *string `json:"excerpt" validate:"omitnil,max=200"`
	Category *string `json:"category" validate:"omitnil,uuid"`
	Tags     *string `json:"tags"`
	Status   *string `json:"status" validate:"omitnil,oneof=draft published"`
}

func (in UpdateInput) Empty() bool {
	return in.Title == nil && in.Content == nil && in.Excerpt == nil &&
		in.Category == nil && in.Tags == nil && in.Status == nil
}

type LikeResult struct {
	IsLiked    bool `json:"is_liked"`
	LikesCount int  `json:"likes_count"`
}
