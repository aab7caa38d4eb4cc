package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
)

func names(list []models.Event) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Name)
	}
	return out
}

func visibilityFixture() (me *models.User, list []models.Event) {
	me = &models.User{ID: uuid.New(), Roles: []string{rbac.RoleOrganizer}}
	other := uuid.New()
	trashedAt := time.Now()
	list = []models.Event{
		{ID: uuid.New(), Name: "a-others-draft", Status: models.EventStatusDraft, CreatedBy: other},
		{ID: uuid.New(), Name: "b-my-draft", Status: models.EventStatusDraft, CreatedBy: me.ID},
		{ID: uuid.New(), Name: "c-organized-draft", Status: models.EventStatusDraft, CreatedBy: other, OrganizerIDs: []uuid.UUID{me.ID}},
		{ID: uuid.New(), Name: "d-published", Status: models.EventStatusPublished, CreatedBy: other},
		{ID: uuid.New(), Name: "e-cancelled", Status: models.EventStatusCancelled, CreatedBy: other},
		{ID: uuid.New(), Name: "f-trashed", Status: models.EventStatusPublished, CreatedBy: me.ID, DeletedAt: &trashedAt},
	}
	return me, list
}

func TestFilterVisible_NonAdmin(t *testing.T) {
	h := rbac.DefaultHierarchy()
	me, list := visibilityFixture()
	got := FilterVisible(h, me, list)
	assert.Equal(t, []string{"b-my-draft", "c-organized-draft", "d-published", "e-cancelled"}, names(got))
}

func TestFilterVisible_AdminSeesEveryStatus(t *testing.T) {
	h := rbac.DefaultHierarchy()
	_, list := visibilityFixture()
	got := FilterVisible(h, adminUser, list)
	assert.Equal(t, []string{"a-others-draft", "b-my-draft", "c-organized-draft", "d-published", "e-cancelled"}, names(got))
}

func TestVisible_NilInputs(t *testing.T) {
	h := rbac.DefaultHierarchy()
	assert.False(t, Visible(h, nil, publishedBy(uuid.New())))
	assert.False(t, Visible(h, attendeeUser, nil))
}

func TestVisible_FollowsCurrentState(t *testing.T) {
	h := rbac.DefaultHierarchy()
	actor := &models.User{ID: uuid.New(), Roles: []string{rbac.RoleAttendee}}
	e := draftBy(uuid.New())
	assert.False(t, Visible(h, actor, e))

	actor.Roles = append(actor.Roles, rbac.RoleAdmin)
	assert.True(t, Visible(h, actor, e))

	actor.Roles = []string{rbac.RoleAttendee}
	e.OrganizerIDs = []uuid.UUID{actor.ID}
	assert.True(t, Visible(h, actor, e))
}

func TestService_VisibleEventsAppliesPredicate(t *testing.T) {
	me, list := visibilityFixture()
	store := newMemStore()
	for i := range list {
		store.events[list[i].ID] = &list[i]
	}
	// the store returns everything; the predicate still has to filter
	store.listAll = true
	svc := NewService(store, NewPolicy(nil), nil)

	got, err := svc.VisibleEvents(context.Background(), me)
	require.NoError(t, err)
	assert.Equal(t, []string{"b-my-draft", "c-organized-draft", "d-published", "e-cancelled"}, names(got))

	got, err = svc.VisibleEvents(context.Background(), adminUser)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}
