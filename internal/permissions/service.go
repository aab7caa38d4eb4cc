// Package permissions manages the permission catalog and who holds what.
package permissions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/apperr"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	List(ctx context.Context) ([]models.Permission, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Permission, error)
	Create(ctx context.Context, name string) (*models.Permission, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
	GrantToRole(ctx context.Context, roleID, permID uuid.UUID) error
	RevokeFromRole(ctx context.Context, roleID, permID uuid.UUID) error
	GrantToUser(ctx context.Context, userID, permID uuid.UUID) error
	RevokeFromUser(ctx context.Context, userID, permID uuid.UUID) error
}

// RoleLister lists roles with their permissions.
type RoleLister interface {
	List(ctx context.Context) ([]models.Role, error)
}

// UserLoader loads an account's access snapshot.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auditor records mutations.
type Auditor interface {
	Record(ctx context.Context, actor *models.User, action, resource string, resourceID uuid.UUID, detail interface{})
}

// Input is the body for creating or renaming a permission.
type Input struct {
	Name string `json:"name" binding:"required,max=255"`
}

// GrantRequest names the permission to grant.
type GrantRequest struct {
	PermissionID string `json:"permission_id" binding:"required,uuid"`
}

// AccessControl is the body of GET /access-control.
type AccessControl struct {
	Roles       []models.Role       `json:"roles"`
	Permissions []models.Permission `json:"permissions"`
}

// Service manages permissions and grants.
type Service struct {
	store   Store
	roles   RoleLister
	users   UserLoader
	gate    *rbac.Gate
	auditor Auditor
	logger  *zap.Logger
}

// NewService creates a permission service.
func NewService(store Store, roles RoleLister, users UserLoader, gate *rbac.Gate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, roles: roles, users: users, gate: gate, logger: logger}
}

// SetAuditor installs the audit sink.
func (s *Service) SetAuditor(a Auditor) { s.auditor = a }

// LoadRegistry registers every stored permission name with the gate so
// resource/action checks can resolve them.
func (s *Service) LoadRegistry(ctx context.Context) error {
	list, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		if _, err := s.gate.Registry().Register(p.Name); err != nil {
			s.logger.Warn("permission not addressable by resource/action", zap.String("name", p.Name), zap.Error(err))
		}
	}
	return nil
}

// List returns all permissions.
func (s *Service) List(ctx context.Context) ([]models.Permission, error) { return s.store.List(ctx) }

// Get returns one permission.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Permission, error) {
	return s.store.GetByID(ctx, id)
}

// AccessControl returns every role with its permissions plus the full catalog.
func (s *Service) AccessControl(ctx context.Context) (*AccessControl, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	perms, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return &AccessControl{Roles: roles, Permissions: perms}, nil
}

func checkName(name string) (string, error) {
	name = strings.TrimSpace(name)
	action, resource := rbac.Capability(name).Split()
	if action == "" || resource == "" {
		v := apperr.NewValidation()
		v.Add("name", "must have the form <action>_<resource>")
		return "", v
	}
	return name, nil
}

func builtin(name string) bool {
	for _, c := range rbac.Catalog() {
		if string(c) == name {
			return true
		}
	}
	return false
}

// Create adds a permission and makes it addressable by resource/action.
func (s *Service) Create(ctx context.Context, actor *models.User, in *Input) (*models.Permission, error) {
	name, err := checkName(in.Name)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.gate.Registry().Register(name)
	s.audit(ctx, actor, "create", p.ID, map[string]string{"name": name})
	return p, nil
}

// Rename changes a permission's name. Built-in names are fixed.
func (s *Service) Rename(ctx context.Context, actor *models.User, id uuid.UUID, in *Input) (*models.Permission, error) {
	name, err := checkName(in.Name)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name == name {
		return p, nil
	}
	if builtin(p.Name) {
		return nil, apperr.Conflict("permission " + p.Name + " is built in and cannot be renamed")
	}
	if err := s.store.Rename(ctx, id, name); err != nil {
		return nil, err
	}
	s.gate.Registry().Remove(p.Name)
	s.gate.Registry().Register(name)
	s.audit(ctx, actor, "update", id, map[string]string{"from": p.Name, "to": name})
	p.Name = name
	return p, nil
}

// Delete removes a permission and all its grants.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.gate.Registry().Remove(p.Name)
	s.audit(ctx, actor, "delete", id, map[string]string{"name": p.Name})
	return nil
}

// grantable checks that actor holds the permission being handed out.
func (s *Service) grantable(ctx context.Context, actor *models.User, permID uuid.UUID) (*models.Permission, error) {
	p, err := s.store.GetByID(ctx, permID)
	if err != nil {
		return nil, err
	}
	if !s.gate.Before(actor) && !actor.HasPermission(p.Name) {
		return nil, apperr.Forbidden("you cannot grant a permission you do not hold")
	}
	return p, nil
}

// GrantToRole attaches a permission to a role.
func (s *Service) GrantToRole(ctx context.Context, actor *models.User, roleID, permID uuid.UUID) error {
	p, err := s.grantable(ctx, actor, permID)
	if err != nil {
		return err
	}
	if err := s.store.GrantToRole(ctx, roleID, permID); err != nil {
		return err
	}
	s.auditAs(ctx, actor, "add_permission", "role", roleID, map[string]string{"permission": p.Name})
	return nil
}

// RevokeFromRole detaches a permission from a role.
func (s *Service) RevokeFromRole(ctx context.Context, actor *models.User, roleID, permID uuid.UUID) error {
	if err := s.store.RevokeFromRole(ctx, roleID, permID); err != nil {
		return err
	}
	s.auditAs(ctx, actor, "remove_permission", "role", roleID, map[string]string{"permission_id": permID.String()})
	return nil
}

// target loads userID and checks actor outranks or matches them.
func (s *Service) target(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.gate.Hierarchy().CanManage(actor, u) {
		return nil, apperr.Forbidden(rbac.ReasonSuperiorUser)
	}
	return u, nil
}

// GrantToUser grants a permission to a user directly.
func (s *Service) GrantToUser(ctx context.Context, actor *models.User, userID, permID uuid.UUID) error {
	u, err := s.target(ctx, actor, userID)
	if err != nil {
		return err
	}
	p, err := s.grantable(ctx, actor, permID)
	if err != nil {
		return err
	}
	if u.HasDirectPermission(p.Name) {
		return apperr.Conflict("user already has this permission")
	}
	if err := s.store.GrantToUser(ctx, userID, permID); err != nil {
		return err
	}
	s.auditAs(ctx, actor, "add_permission", "user", userID, map[string]string{"permission": p.Name})
	return nil
}

// RevokeFromUser removes a direct grant. Permissions held only through a role
// are not direct grants.
func (s *Service) RevokeFromUser(ctx context.Context, actor *models.User, userID, permID uuid.UUID) error {
	u, err := s.target(ctx, actor, userID)
	if err != nil {
		return err
	}
	p, err := s.store.GetByID(ctx, permID)
	if err != nil {
		return err
	}
	if !u.HasDirectPermission(p.Name) {
		return apperr.Conflict("user does not have this permission")
	}
	if err := s.store.RevokeFromUser(ctx, userID, permID); err != nil {
		return err
	}
	s.auditAs(ctx, actor, "remove_permission", "user", userID, map[string]string{"permission": p.Name})
	return nil
}

func (s *Service) audit(ctx context.Context, actor *models.User, action string, id uuid.UUID, detail interface{}) {
	s.auditAs(ctx, actor, action, "permission", id, detail)
}

func (s *Service) auditAs(ctx context.Context, actor *models.User, action, resource string, id uuid.UUID, detail interface{}) {
	if s.auditor != nil {
		s.auditor.Record(ctx, actor, action, resource, id, detail)
	}
}
