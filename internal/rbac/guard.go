package rbac

import (
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
)

// Denial reasons surfaced to clients.
const (
	ReasonSuperiorRole = "cannot assign a role superior to your own"
	ReasonSuperiorUser = "cannot manage a user with a role superior to your own"
)

// CanAssign reports whether actor may hand out role: its rank must not exceed
// the rank of the actor's highest role. Equal ranks are allowed.
func (h *Hierarchy) CanAssign(actor *models.User, role string) bool {
	return h.Rank(role) <= h.Rank(h.HighestRole(actor))
}

// CheckAssignable validates every role of a multi-role request before anything is
// written. Unknown roles fail as NotFound ahead of any rank comparison; one role
// above the actor's rank rejects the whole request.
func (h *Hierarchy) CheckAssignable(actor *models.User, roles []string, exists func(string) bool) error {
	for _, r := range roles {
		if !exists(r) {
			return apperr.NotFound("role", r)
		}
	}
	for _, r := range roles {
		if !h.CanAssign(actor, r) {
			return apperr.Forbidden(ReasonSuperiorRole)
		}
	}
	return nil
}

// CanManage reports whether actor ranks at least as high as target's highest role.
func (h *Hierarchy) CanManage(actor, target *models.User) bool {
	return h.CanAssign(actor, h.HighestRole(target))
}
