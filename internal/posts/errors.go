package posts

import "errors"

var (
	ErrNotFound         = errors.New("post not found")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrStorageFailure   = errors.New("storage unavailable")
)
