package permissions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/apperr"
)

type grant struct{ holder, perm uuid.UUID }

type memStore struct {
	perms      map[uuid.UUID]*models.Permission
	roleGrants map[grant]bool
	userGrants map[grant]bool
}

func newMemStore(names ...string) *memStore {
	s := &memStore{perms: map[uuid.UUID]*models.Permission{}, roleGrants: map[grant]bool{}, userGrants: map[grant]bool{}}
	for _, n := range names {
		p := &models.Permission{ID: uuid.New(), Name: n}
		s.perms[p.ID] = p
	}
	return s
}

func (s *memStore) idOf(name string) uuid.UUID {
	for id, p := range s.perms {
		if p.Name == name {
			return id
		}
	}
	return uuid.Nil
}

func (s *memStore) List(context.Context) ([]models.Permission, error) {
	out := []models.Permission{}
	for _, p := range s.perms {
		out = append(out, *p)
	}
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Permission, error) {
	p, ok := s.perms[id]
	if !ok {
		return nil, apperr.NotFound("permission", "")
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, name string) (*models.Permission, error) {
	if s.idOf(name) != uuid.Nil {
		return nil, apperr.Conflict("permission already exists")
	}
	p := &models.Permission{ID: uuid.New(), Name: name}
	s.perms[p.ID] = p
	return p, nil
}

func (s *memStore) Rename(_ context.Context, id uuid.UUID, name string) error {
	s.perms[id].Name = name
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.perms, id)
	return nil
}

func (s *memStore) GrantToRole(_ context.Context, roleID, permID uuid.UUID) error {
	g := grant{roleID, permID}
	if s.roleGrants[g] {
		return apperr.Conflict("role already has this permission")
	}
	s.roleGrants[g] = true
	return nil
}

func (s *memStore) RevokeFromRole(_ context.Context, roleID, permID uuid.UUID) error {
	g := grant{roleID, permID}
	if !s.roleGrants[g] {
		return apperr.Conflict("role does not have this permission")
	}
	delete(s.roleGrants, g)
	return nil
}

func (s *memStore) GrantToUser(_ context.Context, userID, permID uuid.UUID) error {
	g := grant{userID, permID}
	if s.userGrants[g] {
		return apperr.Conflict("user already has this permission")
	}
	s.userGrants[g] = true
	return nil
}

func (s *memStore) RevokeFromUser(_ context.Context, userID, permID uuid.UUID) error {
	g := grant{userID, permID}
	if !s.userGrants[g] {
		return apperr.Conflict("user does not have this permission")
	}
	delete(s.userGrants, g)
	return nil
}

type staticRoles []models.Role

func (r staticRoles) List(context.Context) ([]models.Role, error) { return r, nil }

type userMap map[uuid.UUID]*models.User

func (m userMap) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("user", "")
	}
	return u, nil
}

// userSnapshots fills direct permissions from the store's grants, the way the
// account loader does.
type userSnapshots struct {
	users userMap
	store *memStore
}

func (u userSnapshots) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	found, err := u.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *found
	cp.DirectPermissions = nil
	for g := range u.store.userGrants {
		if g.holder == id {
			cp.DirectPermissions = append(cp.DirectPermissions, u.store.perms[g.perm].Name)
		}
	}
	return &cp, nil
}

func user(perms []string, roles ...string) *models.User {
	return &models.User{ID: uuid.New(), Roles: roles, Permissions: perms}
}

func newService(store *memStore, users userMap) (*Service, *rbac.Gate) {
	gate := rbac.NewGate(rbac.DefaultHierarchy(), rbac.NewRegistry())
	roles := staticRoles{{ID: uuid.New(), Name: rbac.RoleAdmin}}
	return NewService(store, roles, userSnapshots{users, store}, gate, nil), gate
}

func TestService_LoadRegistry(t *testing.T) {
	store := newMemStore("publish_newsletter", "bogus")
	svc, gate := newService(store, nil)

	require.NoError(t, svc.LoadRegistry(context.Background()))
	c, ok := gate.Registry().Lookup("newsletter", "publish")
	assert.True(t, ok)
	assert.Equal(t, rbac.Capability("publish_newsletter"), c)
}

func TestService_CreateRenameDeleteTrackRegistry(t *testing.T) {
	store := newMemStore()
	svc, gate := newService(store, nil)
	admin := user(nil, rbac.RoleAdmin)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, &Input{Name: "nounderscore"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	p, err := svc.Create(ctx, admin, &Input{Name: "publish_newsletter"})
	require.NoError(t, err)
	_, ok := gate.Registry().Lookup("newsletter", "publish")
	assert.True(t, ok)

	_, err = svc.Rename(ctx, admin, p.ID, &Input{Name: "archive_newsletter"})
	require.NoError(t, err)
	_, ok = gate.Registry().Lookup("newsletter", "publish")
	assert.False(t, ok)
	_, ok = gate.Registry().Lookup("newsletter", "archive")
	assert.True(t, ok)

	require.NoError(t, svc.Delete(ctx, admin, p.ID))
	_, ok = gate.Registry().Lookup("newsletter", "archive")
	assert.False(t, ok)
}

func TestService_BuiltinCannotBeRenamed(t *testing.T) {
	store := newMemStore("view_event")
	svc, _ := newService(store, nil)

	_, err := svc.Rename(context.Background(), user(nil, rbac.RoleAdmin), store.idOf("view_event"), &Input{Name: "see_event"})
	assert.True(t, apperr.IsConflict(err))
}

func TestService_RoleGrants(t *testing.T) {
	store := newMemStore("view_event", "delete_event")
	svc, _ := newService(store, nil)
	ctx := context.Background()
	roleID := uuid.New()
	organizer := user([]string{"view_event", "add_role_permission"}, rbac.RoleOrganizer)

	require.NoError(t, svc.GrantToRole(ctx, organizer, roleID, store.idOf("view_event")))
	assert.True(t, apperr.IsConflict(svc.GrantToRole(ctx, organizer, roleID, store.idOf("view_event"))))

	// cannot hand out what you do not hold
	assert.True(t, apperr.IsForbidden(svc.GrantToRole(ctx, organizer, roleID, store.idOf("delete_event"))))
	require.NoError(t, svc.GrantToRole(ctx, user(nil, rbac.RoleAdmin), roleID, store.idOf("delete_event")))

	require.NoError(t, svc.RevokeFromRole(ctx, organizer, roleID, store.idOf("view_event")))
	assert.True(t, apperr.IsConflict(svc.RevokeFromRole(ctx, organizer, roleID, store.idOf("view_event"))))
	assert.True(t, apperr.IsNotFound(svc.GrantToRole(ctx, organizer, roleID, uuid.New())))
}

func TestService_UserGrantsRespectRank(t *testing.T) {
	store := newMemStore("view_event")
	admin := user(nil, rbac.RoleAdmin)
	attendee := user(nil, rbac.RoleAttendee)
	organizer := user([]string{"view_event"}, rbac.RoleOrganizer)
	svc, _ := newService(store, userMap{admin.ID: admin, attendee.ID: attendee, organizer.ID: organizer})
	ctx := context.Background()
	perm := store.idOf("view_event")

	err := svc.GrantToUser(ctx, organizer, admin.ID, perm)
	require.True(t, apperr.IsForbidden(err))
	assert.Equal(t, rbac.ReasonSuperiorUser, err.Error())

	require.NoError(t, svc.GrantToUser(ctx, organizer, attendee.ID, perm))
	assert.True(t, store.userGrants[grant{attendee.ID, perm}])
	require.NoError(t, svc.RevokeFromUser(ctx, organizer, attendee.ID, perm))
	assert.True(t, apperr.IsConflict(svc.RevokeFromUser(ctx, organizer, attendee.ID, perm)))

	assert.True(t, apperr.IsNotFound(svc.GrantToUser(ctx, admin, uuid.New(), perm)))
}

func TestService_UserGrantChecksDirectGrants(t *testing.T) {
	store := newMemStore("view_event")
	admin := user(nil, rbac.RoleAdmin)
	// view_event through a role only
	attendee := user([]string{"view_event"}, rbac.RoleAttendee)
	svc, _ := newService(store, userMap{admin.ID: admin, attendee.ID: attendee})
	ctx := context.Background()
	perm := store.idOf("view_event")

	err := svc.RevokeFromUser(ctx, admin, attendee.ID, perm)
	require.True(t, apperr.IsConflict(err))
	assert.Equal(t, "user does not have this permission", err.Error())

	require.NoError(t, svc.GrantToUser(ctx, admin, attendee.ID, perm))
	err = svc.GrantToUser(ctx, admin, attendee.ID, perm)
	require.True(t, apperr.IsConflict(err))
	assert.Equal(t, "user already has this permission", err.Error())

	require.NoError(t, svc.RevokeFromUser(ctx, admin, attendee.ID, perm))
	assert.Empty(t, store.userGrants)
	assert.True(t, apperr.IsNotFound(svc.RevokeFromUser(ctx, admin, attendee.ID, uuid.New())))
}

func TestService_AccessControl(t *testing.T) {
	store := newMemStore("view_event")
	svc, _ := newService(store, nil)

	ac, err := svc.AccessControl(context.Background())
	require.NoError(t, err)
	require.Len(t, ac.Roles, 1)
	assert.Equal(t, rbac.RoleAdmin, ac.Roles[0].Name)
	require.Len(t, ac.Permissions, 1)
}
