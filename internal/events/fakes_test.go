package events

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/apperr"
)

var (
	adminUser     = &models.User{ID: uuid.New(), Roles: []string{rbac.RoleAdmin}}
	organizerUser = &models.User{ID: uuid.New(), Roles: []string{rbac.RoleOrganizer}, Permissions: []string{"view_event", "create_event", "update_event"}}
	attendeeUser  = &models.User{ID: uuid.New(), Roles: []string{rbac.RoleAttendee}, Permissions: []string{"view_event"}}
)

func draftBy(owner uuid.UUID, organizers ...uuid.UUID) *models.Event {
	return &models.Event{ID: uuid.New(), Name: "draft", Status: models.EventStatusDraft, CreatedBy: owner, OrganizerIDs: organizers}
}

func publishedBy(owner uuid.UUID) *models.Event {
	return &models.Event{ID: uuid.New(), Name: "published", Status: models.EventStatusPublished, CreatedBy: owner}
}

// memStore keeps events in memory and applies the same visibility filter the SQL does.
type memStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
	// listAll disables the status filter so FilterVisible is exercised alone.
	listAll bool
}

func newMemStore(list ...*models.Event) *memStore {
	s := &memStore{events: make(map[uuid.UUID]*models.Event)}
	for _, e := range list {
		s.events[e.ID] = e
	}
	return s
}

func (s *memStore) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID, withTrashed bool) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || (e.IsTrashed() && !withTrashed) {
		return nil, apperr.NotFound("event", "")
	}
	cp := *e
	cp.OrganizerIDs = append([]uuid.UUID(nil), e.OrganizerIDs...)
	return &cp, nil
}

func (s *memStore) ListVisible(_ context.Context, actorID uuid.UUID, all bool) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if e.IsTrashed() {
			continue
		}
		if all || s.listAll || !e.IsDraft() || e.CreatedBy == actorID || e.HasOrganizer(actorID) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) Update(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return apperr.NotFound("event", "")
	}
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *memStore) SetImage(_ context.Context, id uuid.UUID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id].ImageURL = &url
	return nil
}

func (s *memStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.events[id].DeletedAt = &now
	return nil
}

func (s *memStore) Restore(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id].DeletedAt = nil
	return nil
}

func (s *memStore) ForceDelete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, id)
	return nil
}

func (s *memStore) AddOrganizer(_ context.Context, eventID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.events[eventID]
	if e.HasOrganizer(userID) {
		return apperr.Conflict("user is already an organizer of this event")
	}
	e.OrganizerIDs = append(e.OrganizerIDs, userID)
	return nil
}

func (s *memStore) RemoveOrganizer(_ context.Context, eventID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.events[eventID]
	for i, id := range e.OrganizerIDs {
		if id == userID {
			e.OrganizerIDs = append(e.OrganizerIDs[:i], e.OrganizerIDs[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("organizer", userID.String())
}

type notice struct {
	id   uuid.UUID
	kind string
}

type recordingNotifier struct{ got []notice }

func (n *recordingNotifier) NotifyEvent(id uuid.UUID, kind string, _ interface{}) {
	n.got = append(n.got, notice{id, kind})
}

type recordingAuditor struct{ actions []string }

func (a *recordingAuditor) Record(_ context.Context, _ *models.User, action, _ string, _ uuid.UUID, _ interface{}) {
	a.actions = append(a.actions, action)
}

type fakeImages struct {
	uploaded []string
	deleted  []string
}

func (f *fakeImages) UploadEventImage(_ context.Context, eventID, filename, _ string, body io.Reader, _ int64) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	url := "https://imgs.s3.us-east-1.amazonaws.com/events/" + eventID + "/" + filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) DeleteEventImage(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}
