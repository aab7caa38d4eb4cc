package events

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/validation"
)

// Input is the body for creating or replacing an event.
type Input struct {
	Name                   string      `json:"name" binding:"required,max=255"`
	EventType              string      `json:"event_type" binding:"required,event_type"`
	Description            string      `json:"description" binding:"required"`
	ImageURL               *string     `json:"image_url" binding:"omitempty,url"`
	CapacityLimit          int         `json:"capacity_limit" binding:"required,min=1"`
	WaitingListSize        *int        `json:"waiting_list_size" binding:"omitempty,min=0"`
	AutomaticTicketUpgrade *bool       `json:"automatic_ticket_upgrade"`
	StartDate              time.Time   `json:"start_date" binding:"required"`
	EndDate                time.Time   `json:"end_date" binding:"required"`
	Location               *string     `json:"location" binding:"omitempty,max=255"`
	Status                 string      `json:"status" binding:"omitempty,event_status"`
	CancellationPolicy     *string     `json:"cancellation_policy"`
	OrganizerIDs           []uuid.UUID `json:"organizer_ids"`
}

// RegisterValidators installs the event_type and event_status tags.
func RegisterValidators(v *validator.Validate) error {
	validation.RegisterMessage("event_type", "must be a valid event type")
	validation.RegisterMessage("event_status", "must be one of draft, published, cancelled")
	if err := v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return models.ValidEventType(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("event_status", func(fl validator.FieldLevel) bool {
		return models.ValidEventStatus(fl.Field().String())
	})
}

// ValidateInput checks the rules binding tags cannot express. It repeats the
// enum and range checks so callers outside HTTP get the same guarantees.
func ValidateInput(in *Input, now time.Time) error {
	v := apperr.NewValidation()
	if in.Name == "" {
		v.Add("name", "is required")
	} else if len(in.Name) > 255 {
		v.Add("name", "may not be greater than 255 characters")
	}
	if !models.ValidEventType(in.EventType) {
		v.Add("event_type", "must be a valid event type")
	}
	if in.Description == "" {
		v.Add("description", "is required")
	}
	if in.CapacityLimit < 1 {
		v.Add("capacity_limit", "must be at least 1")
	}
	if in.WaitingListSize != nil && *in.WaitingListSize < 0 {
		v.Add("waiting_list_size", "must be at least 0")
	}
	if in.Location != nil && len(*in.Location) > 255 {
		v.Add("location", "may not be greater than 255 characters")
	}
	if in.Status != "" && !models.ValidEventStatus(in.Status) {
		v.Add("status", "must be one of draft, published, cancelled")
	}

	today := startOfDay(now)
	switch {
	case in.StartDate.IsZero():
		v.Add("start_date", "is required")
	case in.StartDate.Before(today):
		v.Add("start_date", "must be a date after or equal to today")
	}
	switch {
	case in.EndDate.IsZero():
		v.Add("end_date", "is required")
	case !in.StartDate.IsZero() && !in.EndDate.After(in.StartDate):
		v.Add("end_date", "must be a date after start_date")
	}
	return v.OrNil()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Apply copies the input onto e, filling defaults for omitted optional fields.
// A nil image_url or organizer_ids keeps what e already has. An omitted status
// keeps a stored event's status and makes a new one a draft.
func (in *Input) Apply(e *models.Event) {
	e.Name = in.Name
	e.EventType = models.EventType(in.EventType)
	e.Description = in.Description
	if in.ImageURL != nil {
		e.ImageURL = in.ImageURL
	}
	e.CapacityLimit = in.CapacityLimit
	e.WaitingListSize = 0
	if in.WaitingListSize != nil {
		e.WaitingListSize = *in.WaitingListSize
	}
	e.AutomaticTicketUpgrade = true
	if in.AutomaticTicketUpgrade != nil {
		e.AutomaticTicketUpgrade = *in.AutomaticTicketUpgrade
	}
	e.StartDate = in.StartDate
	e.EndDate = in.EndDate
	e.Location = in.Location
	switch {
	case in.Status != "":
		e.Status = models.EventStatus(in.Status)
	case e.ID == uuid.Nil || e.Status == "":
		e.Status = models.EventStatusDraft
	}
	e.CancellationPolicy = in.CancellationPolicy
	if in.OrganizerIDs != nil {
		e.OrganizerIDs = dedupe(in.OrganizerIDs)
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
