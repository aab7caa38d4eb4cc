package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
)

type decision struct {
	resource, action string
	allowed          bool
}

type recordingObserver struct{ got []decision }

func (r *recordingObserver) ObserveDecision(resource, action string, allowed bool) {
	r.got = append(r.got, decision{resource, action, allowed})
}

func TestGate_AdminShortCircuit(t *testing.T) {
	g := NewGate(nil, nil)
	admin := &models.User{Roles: []string{RoleAdmin}}
	for _, c := range Catalog() {
		assert.True(t, g.Allows(admin, c), "admin should pass %s", c)
	}
	assert.True(t, g.Allows(admin, Capability("launch_rocket")))
}

func TestGate_PermissionCheck(t *testing.T) {
	g := NewGate(nil, nil)
	organizer := &models.User{Roles: []string{RoleOrganizer}, Permissions: []string{"view_event", "create_event"}}

	assert.True(t, g.Allows(organizer, CreateEvent))
	assert.False(t, g.Allows(organizer, DeleteRole))
	assert.False(t, g.Allows(nil, ViewEvent))

	err := g.Authorize(organizer, DeleteRole)
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))
	assert.NoError(t, g.Authorize(organizer, ViewEvent))
}

func TestGate_ObserverSeesDecisions(t *testing.T) {
	g := NewGate(nil, nil)
	obs := &recordingObserver{}
	g.SetObserver(obs)

	g.Allows(&models.User{}, ViewRole)
	g.Allows(&models.User{Roles: []string{RoleAdmin}}, AddUserPermission)

	require.Len(t, obs.got, 2)
	assert.Equal(t, decision{"role", "view", false}, obs.got[0])
	assert.Equal(t, decision{"user_permission", "add", true}, obs.got[1])
}

func TestGate_AllowsActionViaRegistry(t *testing.T) {
	g := NewGate(nil, nil)
	u := &models.User{Permissions: []string{"publish_newsletter", "create_event"}}

	ok, err := g.AllowsAction(u, "event", "create")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = g.AllowsAction(u, "newsletter", "publish")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	_, err = g.Registry().Register("publish_newsletter")
	require.NoError(t, err)
	ok, err = g.AllowsAction(u, "newsletter", "publish")
	require.NoError(t, err)
	assert.True(t, ok)
}
