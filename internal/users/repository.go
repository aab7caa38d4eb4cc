package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/database"
)

// userColumns selects an account with its access snapshot: assigned roles,
// direct permissions and the effective permission set.
const userColumns = `u.id, u.name, u.email, u.password_hash, u.email_verified_at, u.created_at, u.updated_at,
	ARRAY(SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id ORDER BY r.name),
	ARRAY(SELECT p.name FROM user_permissions up JOIN permissions p ON p.id = up.permission_id WHERE up.user_id = u.id ORDER BY p.name),
	ARRAY(SELECT p.name FROM permissions p
		WHERE EXISTS (SELECT 1 FROM user_permissions up WHERE up.permission_id = p.id AND up.user_id = u.id)
		OR EXISTS (SELECT 1 FROM role_permissions rp JOIN user_roles ur ON ur.role_id = rp.role_id
			WHERE rp.permission_id = p.id AND ur.user_id = u.id)
		ORDER BY p.name)`

// Repository handles account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt,
		&u.Roles, &u.DirectPermissions, &u.Permissions)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// LoadActor returns the account with roles and permissions resolved.
func (r *Repository) LoadActor(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.GetByID(ctx, id)
}

// GetByID returns an account by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		return nil, database.MapError(err, "user", "")
	}
	return u, nil
}

// List returns every account ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.name, u.email`)
	if err != nil {
		return nil, database.MapError(err, "user", "")
	}
	defer rows.Close()
	list := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

// RoleNames returns the names of all stored roles.
func (r *Repository) RoleNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Create inserts the account and attaches roles in one transaction.
func (r *Repository) Create(ctx context.Context, u *models.User, roles []string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, q, u.Name, u.Email, u.Password).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("email already registered")
			}
			return err
		}
		return attachRoles(ctx, tx, u.ID, roles)
	})
	if err != nil {
		return database.MapError(err, "user", "")
	}
	u.Roles = roles
	return nil
}

// Update writes profile fields. A nil passwordHash keeps the password; nil
// roles keep the assignment, otherwise roles replace it. All or nothing.
func (r *Repository) Update(ctx context.Context, u *models.User, passwordHash *string, roles []string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `UPDATE users SET name = $1, email = $2, password_hash = COALESCE($3, password_hash), updated_at = NOW()
			WHERE id = $4 RETURNING updated_at`
		if err := tx.QueryRow(ctx, q, u.Name, u.Email, passwordHash, u.ID).Scan(&u.UpdatedAt); err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("email already registered")
			}
			return err
		}
		if roles == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, u.ID); err != nil {
			return err
		}
		return attachRoles(ctx, tx, u.ID, roles)
	})
	if err != nil {
		return database.MapError(err, "user", "")
	}
	if roles != nil {
		u.Roles = roles
	}
	return nil
}

func attachRoles(ctx context.Context, tx pgx.Tx, userID uuid.UUID, roles []string) error {
	if len(roles) == 0 {
		return nil
	}
	const q = `INSERT INTO user_roles (user_id, role_id) SELECT $1, id FROM roles WHERE name = ANY($2)`
	tag, err := tx.Exec(ctx, q, userID, roles)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(roles) {
		return apperr.NotFound("role", "")
	}
	return nil
}

// Delete removes an account; its grants cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err, "user", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user", "")
	}
	return nil
}
