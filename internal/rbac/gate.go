package rbac

import (
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
)

// Observer receives every decision the gate or a policy makes.
type Observer interface {
	ObserveDecision(resource, action string, allowed bool)
}

// Gate answers capability checks. Holders of the top-ranked role pass every
// check; Before is evaluated ahead of any other rule.
type Gate struct {
	hierarchy *Hierarchy
	registry  *Registry
	observer  Observer
}

// NewGate creates a gate over a hierarchy and capability registry.
func NewGate(h *Hierarchy, reg *Registry) *Gate {
	if h == nil {
		h = DefaultHierarchy()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &Gate{hierarchy: h, registry: reg}
}

// SetObserver installs an observer for decisions (e.g. metrics).
func (g *Gate) SetObserver(o Observer) { g.observer = o }

// Hierarchy returns the role hierarchy the gate ranks with.
func (g *Gate) Hierarchy() *Hierarchy { return g.hierarchy }

// Registry returns the capability registry.
func (g *Gate) Registry() *Registry { return g.registry }

// Before is the super-admin short-circuit.
func (g *Gate) Before(actor *models.User) bool {
	return g.hierarchy.IsTop(actor)
}

// Allows reports whether actor holds capability c, directly or through a role.
func (g *Gate) Allows(actor *models.User, c Capability) bool {
	allowed := actor != nil && (g.Before(actor) || actor.HasPermission(string(c)))
	g.Observe(c, allowed)
	return allowed
}

// Authorize is Allows returning an AuthorizationError on denial.
func (g *Gate) Authorize(actor *models.User, c Capability) error {
	if !g.Allows(actor, c) {
		return apperr.Forbidden("this action is unauthorized")
	}
	return nil
}

// AllowsAction resolves resource/action through the registry before checking it.
// Pairs nobody registered are NotFound.
func (g *Gate) AllowsAction(actor *models.User, resource, action string) (bool, error) {
	c, ok := g.registry.Lookup(resource, action)
	if !ok {
		return false, apperr.NotFound("capability", action+"_"+resource)
	}
	return g.Allows(actor, c), nil
}

// Observe forwards a decision on c to the observer, if any.
func (g *Gate) Observe(c Capability, allowed bool) {
	if g.observer == nil {
		return
	}
	action, resource := c.Split()
	g.observer.ObserveDecision(resource, action, allowed)
}

// ObserveAction forwards a policy decision that is not tied to a single capability.
func (g *Gate) ObserveAction(resource, action string, allowed bool) {
	if g.observer != nil {
		g.observer.ObserveDecision(resource, action, allowed)
	}
}
