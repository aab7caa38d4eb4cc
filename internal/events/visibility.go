package events

import (
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
)

// Visible reports whether e belongs in actor's event listing. Trashed events
// are never listed. Top-ranked actors see every status; everyone else sees
// non-drafts plus drafts they created or organize.
func Visible(h *rbac.Hierarchy, actor *models.User, e *models.Event) bool {
	if actor == nil || e == nil || e.IsTrashed() {
		return false
	}
	if h.IsTop(actor) {
		return true
	}
	return !e.IsDraft() || e.CreatedBy == actor.ID || e.HasOrganizer(actor.ID)
}

// FilterVisible keeps the events Visible admits, preserving order.
func FilterVisible(h *rbac.Hierarchy, actor *models.User, list []models.Event) []models.Event {
	out := make([]models.Event, 0, len(list))
	for i := range list {
		if Visible(h, actor, &list[i]) {
			out = append(out, list[i])
		}
	}
	return out
}
