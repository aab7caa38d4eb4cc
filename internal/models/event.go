package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
)

// EventStatuses lists every valid status.
var EventStatuses = []EventStatus{EventStatusDraft, EventStatusPublished, EventStatusCancelled}

// EventType classifies an event.
type EventType string

const (
	EventTypeWorkshop        EventType = "workshop"
	EventTypeConference      EventType = "conference"
	EventTypeWebinar         EventType = "webinar"
	EventTypeSeminar         EventType = "seminar"
	EventTypeMeetup          EventType = "meetup"
	EventTypeNetworking      EventType = "networking event"
	EventTypeLecture         EventType = "lecture"
	EventTypeTraining        EventType = "training"
	EventTypePanelDiscussion EventType = "panel discussion"
	EventTypeRoundTable      EventType = "round table"
	EventTypeSocial          EventType = "social event"
	EventTypeFundraiser      EventType = "fundraiser"
)

// EventTypes lists every valid event type.
var EventTypes = []EventType{
	EventTypeWorkshop, EventTypeConference, EventTypeWebinar, EventTypeSeminar,
	EventTypeMeetup, EventTypeNetworking, EventTypeLecture, EventTypeTraining,
	EventTypePanelDiscussion, EventTypeRoundTable, EventTypeSocial, EventTypeFundraiser,
}

// ValidEventStatus reports whether s is a known status.
func ValidEventStatus(s string) bool {
	for _, v := range EventStatuses {
		if string(v) == s {
			return true
		}
	}
	return false
}

// ValidEventType reports whether s is a known event type.
func ValidEventType(s string) bool {
	for _, v := range EventTypes {
		if string(v) == s {
			return true
		}
	}
	return false
}

// Event is a scheduled event owned by its creator and co-edited by organizers.
type Event struct {
	ID                     uuid.UUID   `json:"id"`
	Name                   string      `json:"name"`
	EventType              EventType   `json:"event_type"`
	Description            string      `json:"description"`
	ImageURL               *string     `json:"image_url,omitempty"`
	CapacityLimit          int         `json:"capacity_limit"`
	WaitingListSize        int         `json:"waiting_list_size"`
	AutomaticTicketUpgrade bool        `json:"automatic_ticket_upgrade"`
	StartDate              time.Time   `json:"start_date"`
	EndDate                time.Time   `json:"end_date"`
	Location               *string     `json:"location,omitempty"`
	Status                 EventStatus `json:"status"`
	CancellationPolicy     *string     `json:"cancellation_policy,omitempty"`
	CreatedBy              uuid.UUID   `json:"created_by"`
	OrganizerIDs           []uuid.UUID `json:"organizer_ids"`
	DeletedAt              *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// IsDraft reports whether the event is unpublished.
func (e *Event) IsDraft() bool { return e.Status == EventStatusDraft }

// IsTrashed reports whether the event was soft-deleted.
func (e *Event) IsTrashed() bool { return e.DeletedAt != nil }

// HasOrganizer reports whether userID is in the organizer set.
func (e *Event) HasOrganizer(userID uuid.UUID) bool {
	for _, id := range e.OrganizerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
