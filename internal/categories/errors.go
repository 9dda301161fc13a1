package categories

import "errors"

var (
	ErrNotFound       = errors.New("category not found")
	ErrDuplicateSlug  = errors.New("a category with this name or slug already exists")
	ErrInUse          = errors.New("category is referenced by posts")
	ErrStorageFailure = errors.New("storage unavailable")
)
