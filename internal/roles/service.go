package roles

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/apperr"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	List(ctx context.Context) ([]models.Role, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	Create(ctx context.Context, name string) (*models.Role, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Auditor records mutations.
type Auditor interface {
	Record(ctx context.Context, actor *models.User, action, resource string, resourceID uuid.UUID, detail interface{})
}

// Input is the body for creating or renaming a role.
type Input struct {
	Name string `json:"name" binding:"required,max=255"`
}

// Service manages roles.
type Service struct {
	store     Store
	hierarchy *rbac.Hierarchy
	auditor   Auditor
}

// NewService creates a role service.
func NewService(store Store, h *rbac.Hierarchy) *Service {
	if h == nil {
		h = rbac.DefaultHierarchy()
	}
	return &Service{store: store, hierarchy: h}
}

// SetAuditor installs the audit sink.
func (s *Service) SetAuditor(a Auditor) { s.auditor = a }

// List returns all roles with their permissions.
func (s *Service) List(ctx context.Context) ([]models.Role, error) { return s.store.List(ctx) }

// Get returns one role.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return s.store.GetByID(ctx, id)
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		v := apperr.NewValidation()
		v.Add("name", "is required")
		return "", v
	}
	return name, nil
}

// Create adds a role. Names outside the hierarchy rank lowest.
func (s *Service) Create(ctx context.Context, actor *models.User, in *Input) (*models.Role, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	role, err := s.store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "create", role.ID, map[string]string{"name": name})
	return role, nil
}

// Rename changes a role's name. Ranked roles keep their names so the
// hierarchy keeps resolving.
func (s *Service) Rename(ctx context.Context, actor *models.User, id uuid.UUID, in *Input) (*models.Role, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	role, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.Name == name {
		return role, nil
	}
	if s.hierarchy.Known(role.Name) {
		return nil, apperr.Conflict("role " + role.Name + " is part of the role hierarchy and cannot be renamed")
	}
	if err := s.store.Rename(ctx, id, name); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "update", id, map[string]string{"from": role.Name, "to": name})
	role.Name = name
	return role, nil
}

// Delete removes a role. It fails with a conflict while any account holds it.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, actor, "delete", id, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, actor *models.User, action string, id uuid.UUID, detail interface{}) {
	if s.auditor != nil {
		s.auditor.Record(ctx, actor, action, "role", id, detail)
	}
}
