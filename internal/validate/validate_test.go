package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title  string  `json:"title" validate:"required,min=1,max=5"`
	Status *string `json:"status" validate:"omitnil,oneof=draft published"`
	Color  string  `json:"color" validate:"omitempty,hexcolor"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := "draft"
		require.NoError(t, Struct(sample{Title: "abc", Status: &s, Color: "#3B82F6"}))
	})

	t.Run("reports json field names", func(t *testing.T) {
		s := "archived"
		err := Struct(sample{Title: "too long title", Status: &s, Color: "blue"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalid))

		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "must be at most 5 characters", verr.Fields["title"])
		assert.Contains(t, verr.Fields["status"], "draft published")
		assert.Contains(t, verr.Fields, "color")
	})

	t.Run("nil pointer skipped", func(t *testing.T) {
		require.NoError(t, Struct(sample{Title: "a"}))
	})

	t.Run("required", func(t *testing.T) {
		var verr *Error
		require.ErrorAs(t, Struct(sample{}), &verr)
		assert.Equal(t, "required", verr.Fields["title"])
	})
}

func TestField(t *testing.T) {
	err := Field("category", "must be a valid id")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "validation failed: category: must be a valid id", err.Error())
}
