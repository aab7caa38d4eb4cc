// Package seed installs the default roles, the capability catalog and the
// first administrator. Running it again changes nothing.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/utils"
)

// Plan lists the roles to create and the capabilities each receives.
type Plan struct {
	Roles  []string
	Grants map[string][]rbac.Capability
}

// DefaultPlan derives the plan from h: the top role gets every capability,
// organizers may view, create and update events, and everyone else may view them.
func DefaultPlan(h *rbac.Hierarchy) Plan {
	p := Plan{Roles: h.Names(), Grants: map[string][]rbac.Capability{}}
	p.Grants[h.Top()] = rbac.Catalog()
	for _, name := range p.Roles {
		switch {
		case name == h.Top():
		case name == rbac.RoleOrganizer:
			p.Grants[name] = []rbac.Capability{rbac.ViewEvent, rbac.CreateEvent, rbac.UpdateEvent}
		default:
			p.Grants[name] = []rbac.Capability{rbac.ViewEvent}
		}
	}
	return p
}

// Admin is the account given the top role.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// Seeder writes a plan into the database.
type Seeder struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(pool *pgxpool.Pool, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{pool: pool, logger: logger}
}

// Run applies plan and, when admin has a password, creates the administrator
// with topRole. Everything happens in one transaction.
func (s *Seeder) Run(ctx context.Context, plan Plan, topRole string, admin Admin) error {
	var hash string
	if admin.Password != "" {
		var err error
		if hash, err = utils.HashPassword(admin.Password); err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range plan.Roles {
			batch.Queue(`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, r)
		}
		for _, c := range rbac.Catalog() {
			batch.Queue(`INSERT INTO permissions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, string(c))
		}
		for role, caps := range plan.Grants {
			names := make([]string, len(caps))
			for i, c := range caps {
				names[i] = string(c)
			}
			batch.Queue(`INSERT INTO role_permissions (role_id, permission_id)
				SELECT r.id, p.id FROM roles r, permissions p WHERE r.name = $1 AND p.name = ANY($2)
				ON CONFLICT DO NOTHING`, role, names)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("seed roles and permissions: %w", err)
		}
		if hash == "" {
			s.logger.Warn("admin password not set, skipping admin account")
			return nil
		}
		return s.ensureAdmin(ctx, tx, admin, hash, topRole)
	})
	if err != nil {
		return err
	}
	s.logger.Info("seed complete", zap.Int("roles", len(plan.Roles)), zap.Int("permissions", len(rbac.Catalog())))
	return nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, tx pgx.Tx, admin Admin, hash, topRole string) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	_, err := tx.Exec(ctx, `INSERT INTO users (name, email, password_hash, email_verified_at)
		VALUES ($1, $2, $3, NOW()) ON CONFLICT (email) DO NOTHING`, admin.Name, email, hash)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	tag, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
		SELECT u.id, r.id FROM users u, roles r WHERE LOWER(u.email) = $1 AND r.name = $2
		ON CONFLICT DO NOTHING`, email, topRole)
	if err != nil {
		return fmt.Errorf("assign admin role: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.logger.Info("admin account ready", zap.String("email", email))
	}
	return nil
}
