package permissions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles permission persistence and grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a permission repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPermission(row pgx.CollectableRow) (models.Permission, error) {
	var p models.Permission
	err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// List returns all permissions by name.
func (r *Repository) List(ctx context.Context) ([]models.Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanPermission)
}

// GetByID returns one permission.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Permission, error) {
	var p models.Permission
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err, "permission", "")
	}
	return &p, nil
}

// Create inserts a permission.
func (r *Repository) Create(ctx context.Context, name string) (*models.Permission, error) {
	p := models.Permission{Name: name}
	err := r.pool.QueryRow(ctx, `INSERT INTO permissions (name) VALUES ($1) RETURNING id, created_at, updated_at`, name).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err, "permission", name)
	}
	return &p, nil
}

// Rename changes a permission's name; grants follow by ID.
func (r *Repository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE permissions SET name = $1, updated_at = NOW() WHERE id = $2`, name, id)
	if err != nil {
		return database.MapError(err, "permission", name)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("permission", "")
	}
	return nil
}

// Delete removes a permission and every grant of it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err, "permission", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("permission", "")
	}
	return nil
}

// GrantToRole attaches a permission to a role.
func (r *Repository) GrantToRole(ctx context.Context, roleID, permID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, permID)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("role already has this permission")
	}
	return database.MapError(err, "role", "")
}

// RevokeFromRole detaches a permission from a role.
func (r *Repository) RevokeFromRole(ctx context.Context, roleID, permID uuid.UUID) error {
	return r.revoke(ctx, "roles", "role", roleID, permID,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		"role does not have this permission")
}

// GrantToUser grants a permission to a user directly.
func (r *Repository) GrantToUser(ctx context.Context, userID, permID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_permissions (user_id, permission_id) VALUES ($1, $2)`, userID, permID)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("user already has this permission")
	}
	return database.MapError(err, "user", "")
}

// RevokeFromUser removes a direct grant. Grants via roles are untouched.
func (r *Repository) RevokeFromUser(ctx context.Context, userID, permID uuid.UUID) error {
	return r.revoke(ctx, "users", "user", userID, permID,
		`DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`,
		"user does not have this permission")
}

// revoke runs del and tells a missing holder or permission apart from a
// missing grant.
func (r *Repository) revoke(ctx context.Context, table, resource string, holderID, permID uuid.UUID, del, missing string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, del, holderID, permID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		var holderExists, permExists bool
		err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1),
			EXISTS (SELECT 1 FROM permissions WHERE id = $2)`, holderID, permID).Scan(&holderExists, &permExists)
		switch {
		case err != nil:
			return err
		case !holderExists:
			return apperr.NotFound(resource, "")
		case !permExists:
			return apperr.NotFound("permission", "")
		}
		return apperr.Conflict(missing)
	})
}
