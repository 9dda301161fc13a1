package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanMutate(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	tests := []struct {
		name  string
		actor uuid.UUID
		role  Role
		want  bool
	}{
		{"owner as user", owner, RoleUser, true},
		{"stranger as user", other, RoleUser, false},
		{"stranger as admin", other, RoleAdmin, true},
		{"owner as admin", owner, RoleAdmin, true},
		{"nil actor never owns", uuid.Nil, RoleUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanMutate(tt.actor, tt.role, owner))
		})
	}
}

func TestCanMutate_NilOwnerNilActor(t *testing.T) {
	assert.False(t, CanMutate(uuid.Nil, RoleUser, uuid.Nil))
}

func TestCanManageCategories(t *testing.T) {
	assert.True(t, CanManageCategories(RoleAdmin))
	assert.False(t, CanManageCategories(RoleUser))
	assert.False(t, CanManageCategories(Role(0)))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)
	assert.Equal(t, "admin", r.String())

	r, err = ParseRole("user")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	_, err = ParseRole("Admin")
	assert.ErrorIs(t, err, ErrUnknownRole)
	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRequireHelpers(t *testing.T) {
	owner := uuid.New()

	assert.ErrorIs(t, RequireOwnerOrAdmin(nil, owner), ErrUnauthorized)
	assert.ErrorIs(t, RequireOwnerOrAdmin(&Identity{UserID: uuid.New(), Role: RoleUser}, owner), ErrForbidden)
	assert.NoError(t, RequireOwnerOrAdmin(&Identity{UserID: owner, Role: RoleUser}, owner))

	assert.ErrorIs(t, RequireAdmin(nil), ErrUnauthorized)
	assert.ErrorIs(t, RequireAdmin(&Identity{UserID: owner, Role: RoleUser}), ErrForbidden)
	assert.NoError(t, RequireAdmin(&Identity{UserID: owner, Role: RoleAdmin}))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))

	id := &Identity{UserID: uuid.New(), Role: RoleUser}
	got := FromContext(WithIdentity(ctx, id))
	require.NotNil(t, got)
	assert.Equal(t, id.UserID, got.UserID)
}
