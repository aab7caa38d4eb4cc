package users

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/utils"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	RoleNames(ctx context.Context) ([]string, error)
	Create(ctx context.Context, u *models.User, roles []string) error
	Update(ctx context.Context, u *models.User, passwordHash *string, roles []string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Auditor records mutations.
type Auditor interface {
	Record(ctx context.Context, actor *models.User, action, resource string, resourceID uuid.UUID, detail interface{})
}

// CreateInput is the body for POST /users.
type CreateInput struct {
	Name     string   `json:"name" binding:"required,max=255"`
	Email    string   `json:"email" binding:"required,email,max=255"`
	Password string   `json:"password" binding:"required,min=8"`
	Roles    []string `json:"roles"`
}

// UpdateInput is the body for PUT /users/:id. Omitted password or roles are kept.
type UpdateInput struct {
	Name     string   `json:"name" binding:"required,max=255"`
	Email    string   `json:"email" binding:"required,email,max=255"`
	Password *string  `json:"password" binding:"omitempty,min=8"`
	Roles    []string `json:"roles"`
}

// Service manages accounts. Every role handed out passes the escalation guard.
type Service struct {
	store   Store
	gate    *rbac.Gate
	auditor Auditor
	logger  *zap.Logger
}

// NewService creates a user service.
func NewService(store Store, gate *rbac.Gate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, gate: gate, logger: logger}
}

// SetAuditor installs the audit sink.
func (s *Service) SetAuditor(a Auditor) { s.auditor = a }

// Gate returns the gate the service checks against.
func (s *Service) Gate() *rbac.Gate { return s.gate }

func (s *Service) roleSet(ctx context.Context) (func(string) bool, error) {
	names, err := s.store.RoleNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}, nil
}

// CanAssignRole reports whether actor may hand out roleName. A role that does
// not exist is NotFound, decided before any rank comparison.
func (s *Service) CanAssignRole(ctx context.Context, actor *models.User, roleName string) (bool, error) {
	exists, err := s.roleSet(ctx)
	if err != nil {
		return false, err
	}
	if !exists(roleName) {
		return false, apperr.NotFound("role", roleName)
	}
	return s.gate.Hierarchy().CanAssign(actor, roleName), nil
}

// HighestRole returns actor's highest-ranked role.
func (s *Service) HighestRole(actor *models.User) string {
	return s.gate.Hierarchy().HighestRole(actor)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.store.List(ctx)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetByID(ctx, id)
}

func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok || r == "" {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Create adds an account. Without roles it gets the lowest-ranked role.
func (s *Service) Create(ctx context.Context, actor *models.User, in *CreateInput) (*models.User, error) {
	roles := normalizeRoles(in.Roles)
	if len(roles) == 0 {
		roles = []string{s.gate.Hierarchy().Bottom()}
	}
	exists, err := s.roleSet(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Hierarchy().CheckAssignable(actor, roles, exists); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Name: in.Name, Email: in.Email, Password: hash}
	if err := s.store.Create(ctx, u, roles); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "create", u.ID, map[string]interface{}{"roles": roles})
	return u, nil
}

// Update edits an account and, when roles is set, replaces its roles. actor must
// rank at least as high as the target and as every role requested.
func (s *Service) Update(ctx context.Context, actor *models.User, id uuid.UUID, in *UpdateInput) (*models.User, error) {
	target, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	h := s.gate.Hierarchy()
	var roles []string
	if in.Roles != nil {
		roles = normalizeRoles(in.Roles)
		exists, err := s.roleSet(ctx)
		if err != nil {
			return nil, err
		}
		if err := h.CheckAssignable(actor, roles, exists); err != nil {
			return nil, err
		}
	}
	if !h.CanManage(actor, target) {
		return nil, apperr.Forbidden(rbac.ReasonSuperiorUser)
	}
	var hash *string
	if in.Password != nil {
		hv, err := utils.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = &hv
	}
	target.Name, target.Email = in.Name, in.Email
	if err := s.store.Update(ctx, target, hash, roles); err != nil {
		return nil, err
	}
	detail := map[string]interface{}{}
	if roles != nil {
		detail["roles"] = roles
	}
	s.audit(ctx, actor, "update", id, detail)
	return target, nil
}

// Delete removes an account ranked no higher than actor.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	target, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.gate.Hierarchy().CanManage(actor, target) {
		return apperr.Forbidden(rbac.ReasonSuperiorUser)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, actor, "delete", id, map[string]interface{}{"email": target.Email})
	return nil
}

func (s *Service) audit(ctx context.Context, actor *models.User, action string, id uuid.UUID, detail interface{}) {
	if s.auditor != nil {
		s.auditor.Record(ctx, actor, action, "user", id, detail)
	}
}
