package roles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles role persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a role repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns every role with its permissions.
func (r *Repository) List(ctx context.Context) ([]models.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Role, error) {
		var role models.Role
		err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
		return role, err
	})
	if err != nil {
		return nil, err
	}
	perms, err := r.permissionsByRole(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Permissions = perms[list[i].ID]
		if list[i].Permissions == nil {
			list[i].Permissions = []models.Permission{}
		}
	}
	return list, nil
}

func (r *Repository) permissionsByRole(ctx context.Context) (map[uuid.UUID][]models.Permission, error) {
	const q = `SELECT rp.role_id, p.id, p.name, p.created_at, p.updated_at
		FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id ORDER BY p.name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]models.Permission)
	for rows.Next() {
		var roleID uuid.UUID
		var p models.Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[roleID] = append(out[roleID], p)
	}
	return out, rows.Err()
}

// GetByID returns a role with its permissions.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err, "role", "")
	}
	const q = `SELECT p.id, p.name, p.created_at, p.updated_at
		FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id WHERE rp.role_id = $1 ORDER BY p.name`
	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	role.Permissions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Permission, error) {
		var p models.Permission
		err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// Create inserts a role.
func (r *Repository) Create(ctx context.Context, name string) (*models.Role, error) {
	role := models.Role{Name: name, Permissions: []models.Permission{}}
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (name) VALUES ($1) RETURNING id, created_at, updated_at`, name).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err, "role", name)
	}
	return &role, nil
}

// Rename changes a role's name. Assignments follow by ID.
func (r *Repository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET name = $1, updated_at = NOW() WHERE id = $2`, name, id)
	if err != nil {
		return database.MapError(err, "role", name)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("role", "")
	}
	return nil
}

// Delete removes a role no account holds. The role row is locked so no
// assignment can slip in between the check and the delete.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var name string
		if err := tx.QueryRow(ctx, `SELECT name FROM roles WHERE id = $1 FOR UPDATE`, id).Scan(&name); err != nil {
			return err
		}
		var holders int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, id).Scan(&holders); err != nil {
			return err
		}
		if holders > 0 {
			return apperr.Conflict(fmt.Sprintf("role %q is still assigned to %d account(s)", name, holders))
		}
		_, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		return err
	})
	return database.MapError(err, "role", "")
}
