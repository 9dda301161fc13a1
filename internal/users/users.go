// Package users holds the read-only view of user records owned by the
// credential subsystem.
package users

import "github.com/google/uuid"

// Author is the display subset of a user. Bio is only populated on
// single-post reads.
type Author struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio,omitempty"`
}
