package categories

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultColor = "#3B82F6"

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateInput struct {
	Name        string `json:"name" validate:"required,min=1,max=50"`
	Description string `json:"description" validate:"max=200"`
	Color       string `json:"color" validate:"omitempty,hexcolor,len=7"`
}

func (in *CreateInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
}

type UpdateInput struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=50"`
	Description *string `json:"description" validate:"omitnil,max=200"`
	Color       *string `json:"color" validate:"omitnil,hexcolor,len=7"`
}

func (in *UpdateInput) normalize() {
	for _, f := range []*string{in.Name, in.Description, in.Color} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// Patch is the storage-level partial update. Slug is only set when the name
// changed.
type Patch struct {
	Name        *string
	Description *string
	Slug        *string
	Color       *string
}
