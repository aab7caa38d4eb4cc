package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/testutil"
	"github.com/aura-events/backend/pkg/apperr"
)

func TestRepository_ActorSnapshotAndRoleSync(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	id := uuid.MustParse(testutil.InsertUser(t, pool, "org@example.com", "organizer", "attendee"))
	_, err := pool.Exec(ctx, `INSERT INTO permissions (name) VALUES ('view_event'), ('create_event'), ('view_audit')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id)
		SELECT r.id, p.id FROM roles r, permissions p WHERE r.name = 'organizer' AND p.name IN ('view_event', 'create_event')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO user_permissions (user_id, permission_id)
		SELECT $1, id FROM permissions WHERE name = 'view_audit'`, id)
	require.NoError(t, err)

	actor, err := repo.LoadActor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"attendee", "organizer"}, actor.Roles)
	assert.Equal(t, []string{"view_audit"}, actor.DirectPermissions)
	assert.Equal(t, []string{"create_event", "view_audit", "view_event"}, actor.Permissions)

	// one unknown role rolls back the whole sync
	actor.Name = "renamed"
	err = repo.Update(ctx, actor, nil, []string{"attendee", "ghost"})
	assert.True(t, apperr.IsNotFound(err))
	reloaded, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "org@example.com", reloaded.Name)
	assert.Equal(t, []string{"attendee", "organizer"}, reloaded.Roles)

	require.NoError(t, repo.Update(ctx, reloaded, nil, []string{"attendee"}))
	reloaded, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"attendee"}, reloaded.Roles)
	assert.Equal(t, []string{"view_audit"}, reloaded.Permissions)

	names, err := repo.RoleNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"attendee", "organizer"}, names)
}

func TestRepository_CreateAndDelete(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	testutil.InsertUser(t, pool, "seed@example.com", "attendee")

	u := &models.User{Name: "New", Email: "new@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u, []string{"attendee"}))
	assert.NotEqual(t, uuid.Nil, u.ID)

	dup := &models.User{Name: "Dup", Email: "new@example.com", Password: "hash"}
	assert.True(t, apperr.IsConflict(repo.Create(ctx, dup, []string{"attendee"})))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.True(t, apperr.IsNotFound(repo.Delete(ctx, u.ID)))
}
