// Package authz holds the caller identity model and the capability checks
// that gate post and category mutations.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("authentication required")
	ErrUnknownRole  = errors.New("unknown role")
)

// Role is a closed set; values outside the declared constants never come
// out of ParseRole.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Identity is the acting user for a request.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// CanMutate reports whether actor may update or delete a resource owned by
// ownerID.
func CanMutate(actorID uuid.UUID, role Role, ownerID uuid.UUID) bool {
	return role == RoleAdmin || (actorID != uuid.Nil && actorID == ownerID)
}

// CanManageCategories reports whether role may create, update or delete
// categories. Categories have no owner.
func CanManageCategories(role Role) bool {
	return role == RoleAdmin
}

// RequireOwnerOrAdmin is CanMutate for a possibly anonymous caller.
func RequireOwnerOrAdmin(id *Identity, ownerID uuid.UUID) error {
	if id == nil {
		return ErrUnauthorized
	}
	if !CanMutate(id.UserID, id.Role, ownerID) {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin is CanManageCategories for a possibly anonymous caller.
func RequireAdmin(id *Identity) error {
	if id == nil {
		return ErrUnauthorized
	}
	if !CanManageCategories(id.Role) {
		return ErrForbidden
	}
	return nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
