package events

import (
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/apperr"
)

// Action is an operation the event policy decides on.
type Action string

const (
	ActionView        Action = "view"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionRestore     Action = "restore"
	ActionForceDelete Action = "forceDelete"
)

// Policy decides event actions. Top-ranked actors pass every check before any
// rule below is consulted.
type Policy struct {
	gate *rbac.Gate
}

// NewPolicy creates an event policy on top of gate.
func NewPolicy(gate *rbac.Gate) *Policy {
	if gate == nil {
		gate = rbac.NewGate(nil, nil)
	}
	return &Policy{gate: gate}
}

// Gate returns the gate the policy consults.
func (p *Policy) Gate() *rbac.Gate { return p.gate }

// Allows reports whether actor may perform action on e. e is ignored for create.
func (p *Policy) Allows(action Action, actor *models.User, e *models.Event) bool {
	allowed := p.decide(action, actor, e)
	p.gate.ObserveAction("event", string(action), allowed)
	return allowed
}

// Authorize is Allows returning an AuthorizationError on denial.
func (p *Policy) Authorize(action Action, actor *models.User, e *models.Event) error {
	if !p.Allows(action, actor, e) {
		return apperr.Forbidden("this action is unauthorized")
	}
	return nil
}

func (p *Policy) decide(action Action, actor *models.User, e *models.Event) bool {
	if actor == nil {
		return false
	}
	if p.gate.Before(actor) {
		return true
	}
	if action == ActionCreate {
		return actor.HasPermission(string(rbac.CreateEvent))
	}
	if e == nil {
		return false
	}
	isCreator := e.CreatedBy == actor.ID
	switch action {
	case ActionView:
		return isCreator || !e.IsDraft()
	case ActionUpdate:
		return isCreator || e.HasOrganizer(actor.ID)
	case ActionDelete, ActionRestore:
		return isCreator
	case ActionForceDelete:
		return false
	}
	return false
}
