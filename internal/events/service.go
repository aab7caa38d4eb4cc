package events

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/storage"
)

// Live update kinds pushed to subscribers of an event.
const (
	KindUpdated  = "event_updated"
	KindDeleted  = "event_deleted"
	KindRestored = "event_restored"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID, withTrashed bool) (*models.Event, error)
	ListVisible(ctx context.Context, actorID uuid.UUID, all bool) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	SetImage(ctx context.Context, id uuid.UUID, url string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	ForceDelete(ctx context.Context, id uuid.UUID) error
	AddOrganizer(ctx context.Context, eventID, userID uuid.UUID) error
	RemoveOrganizer(ctx context.Context, eventID, userID uuid.UUID) error
}

// Notifier pushes live updates to an event's subscribers.
type Notifier interface {
	NotifyEvent(eventID uuid.UUID, kind string, payload interface{})
}

// Auditor records mutations. Failures are logged by the implementation.
type Auditor interface {
	Record(ctx context.Context, actor *models.User, action, resource string, resourceID uuid.UUID, detail interface{})
}

// ImageStore holds event cover images.
type ImageStore interface {
	UploadEventImage(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error)
	DeleteEventImage(ctx context.Context, url string) error
}

// Service runs event operations under the event policy.
type Service struct {
	store    Store
	policy   *Policy
	notifier Notifier
	auditor  Auditor
	images   ImageStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an event service.
func NewService(store Store, policy *Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, policy: policy, logger: logger, now: time.Now}
}

// SetNotifier installs the live update sink.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetAuditor installs the audit sink.
func (s *Service) SetAuditor(a Auditor) { s.auditor = a }

// SetImageStore enables cover image uploads.
func (s *Service) SetImageStore(st ImageStore) { s.images = st }

// Policy returns the event policy.
func (s *Service) Policy() *Policy { return s.policy }

// VisibleEvents lists the events actor may see. The query narrows the rows and
// Visible has the final word.
func (s *Service) VisibleEvents(ctx context.Context, actor *models.User) ([]models.Event, error) {
	if actor == nil {
		return nil, apperr.Forbidden("")
	}
	h := s.policy.Gate().Hierarchy()
	list, err := s.store.ListVisible(ctx, actor.ID, h.IsTop(actor))
	if err != nil {
		return nil, err
	}
	return FilterVisible(h, actor, list), nil
}

// Get returns one event if actor may view it.
func (s *Service) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionView, actor, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Create validates in and stores a new event owned by actor.
func (s *Service) Create(ctx context.Context, actor *models.User, in *Input) (*models.Event, error) {
	if err := s.policy.Authorize(ActionCreate, actor, nil); err != nil {
		return nil, err
	}
	if err := ValidateInput(in, s.now()); err != nil {
		return nil, err
	}
	e := &models.Event{CreatedBy: actor.ID, OrganizerIDs: []uuid.UUID{}}
	in.Apply(e)
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "create", e.ID, map[string]interface{}{"name": e.Name, "status": e.Status})
	return e, nil
}

// Update replaces the event's fields with in.
func (s *Service) Update(ctx context.Context, actor *models.User, id uuid.UUID, in *Input) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionUpdate, actor, e); err != nil {
		return nil, err
	}
	if err := ValidateInput(in, s.now()); err != nil {
		return nil, err
	}
	in.Apply(e)
	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}
	s.notify(e.ID, KindUpdated, e)
	s.audit(ctx, actor, "update", e.ID, map[string]interface{}{"status": e.Status})
	return e, nil
}

// Delete moves the event to the trash.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	e, err := s.store.GetByID(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionDelete, actor, e); err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.notify(id, KindDeleted, map[string]interface{}{"id": id, "force": false})
	s.audit(ctx, actor, "delete", id, nil)
	return nil
}

// Restore takes a trashed event out of the trash.
func (s *Service) Restore(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionRestore, actor, e); err != nil {
		return nil, err
	}
	if !e.IsTrashed() {
		return nil, apperr.Conflict("event is not deleted")
	}
	if err := s.store.Restore(ctx, id); err != nil {
		return nil, err
	}
	e.DeletedAt = nil
	s.notify(id, KindRestored, e)
	s.audit(ctx, actor, "restore", id, nil)
	return e, nil
}

// ForceDelete removes the event for good, trashed or not.
func (s *Service) ForceDelete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	e, err := s.store.GetByID(ctx, id, true)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionForceDelete, actor, e); err != nil {
		return err
	}
	if err := s.store.ForceDelete(ctx, id); err != nil {
		return err
	}
	if e.ImageURL != nil && s.images != nil {
		if err := s.images.DeleteEventImage(ctx, *e.ImageURL); err != nil {
			s.logger.Warn("delete event image failed", zap.String("event_id", id.String()), zap.Error(err))
		}
	}
	s.notify(id, KindDeleted, map[string]interface{}{"id": id, "force": true})
	s.audit(ctx, actor, "force_delete", id, map[string]interface{}{"name": e.Name})
	return nil
}

// AddOrganizer lets userID co-edit the event.
func (s *Service) AddOrganizer(ctx context.Context, actor *models.User, id, userID uuid.UUID) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionUpdate, actor, e); err != nil {
		return nil, err
	}
	if err := s.store.AddOrganizer(ctx, id, userID); err != nil {
		return nil, err
	}
	e.OrganizerIDs = append(e.OrganizerIDs, userID)
	s.notify(id, KindUpdated, e)
	s.audit(ctx, actor, "add_organizer", id, map[string]interface{}{"user_id": userID})
	return e, nil
}

// RemoveOrganizer revokes userID's delegation.
func (s *Service) RemoveOrganizer(ctx context.Context, actor *models.User, id, userID uuid.UUID) error {
	e, err := s.store.GetByID(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionUpdate, actor, e); err != nil {
		return err
	}
	if err := s.store.RemoveOrganizer(ctx, id, userID); err != nil {
		return err
	}
	s.notify(id, KindUpdated, map[string]interface{}{"id": id, "removed_organizer": userID})
	s.audit(ctx, actor, "remove_organizer", id, map[string]interface{}{"user_id": userID})
	return nil
}

// UploadImage stores body as the event's cover image.
func (s *Service) UploadImage(ctx context.Context, actor *models.User, id uuid.UUID, filename, contentType string, size int64, body io.Reader) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionUpdate, actor, e); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, fmt.Errorf("image storage not configured")
	}
	v := apperr.NewValidation()
	if !storage.ValidateImageType(contentType, filename) {
		v.Add("image", "must be a jpeg, png, webp or gif image")
	} else if size > storage.MaxImageSize {
		v.Add("image", fmt.Sprintf("may not be greater than %d kilobytes", storage.MaxImageSize/1024))
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if _, ok := storage.AllowedImageTypes[strings.ToLower(contentType)]; !ok {
		contentType = storage.ContentTypeForFilename(filename)
	}
	url, err := s.images.UploadEventImage(ctx, id.String(), filename, contentType, body, size)
	if err != nil {
		return nil, fmt.Errorf("upload event image: %w", err)
	}
	if err := s.store.SetImage(ctx, id, url); err != nil {
		return nil, err
	}
	e.ImageURL = &url
	s.notify(id, KindUpdated, e)
	s.audit(ctx, actor, "upload_image", id, map[string]interface{}{"image_url": url})
	return e, nil
}

// AuthorizeView loads the event and checks view access; used by the live feed.
func (s *Service) AuthorizeView(ctx context.Context, actor *models.User, id uuid.UUID) error {
	_, err := s.Get(ctx, actor, id)
	return err
}

// AuthorizeUpdate loads the event and checks update access, so handlers can
// deny before reading the body.
func (s *Service) AuthorizeUpdate(ctx context.Context, actor *models.User, id uuid.UUID) error {
	e, err := s.store.GetByID(ctx, id, false)
	if err != nil {
		return err
	}
	return s.policy.Authorize(ActionUpdate, actor, e)
}

func (s *Service) notify(id uuid.UUID, kind string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.NotifyEvent(id, kind, payload)
	}
}

func (s *Service) audit(ctx context.Context, actor *models.User, action string, id uuid.UUID, detail interface{}) {
	if s.auditor != nil {
		s.auditor.Record(ctx, actor, action, "event", id, detail)
	}
}
