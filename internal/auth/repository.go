package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/database"
)

// Repository reads and creates login credentials.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByEmail returns a user with its password hash. Roles are not loaded.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, name, email, password_hash, email_verified_at, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err, "user", "")
	}
	return &u, nil
}

// Register creates an account holding role in one transaction.
func (r *Repository) Register(ctx context.Context, name, email, passwordHash, role string) (*models.User, error) {
	u := &models.User{Name: name, Email: email, Password: passwordHash, Roles: []string{role}}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertUser = `INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertUser, name, email, passwordHash).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("email already registered")
			}
			return err
		}
		const attach = `INSERT INTO user_roles (user_id, role_id) SELECT $1, id FROM roles WHERE name = $2`
		tag, err := tx.Exec(ctx, attach, u.ID, role)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("role", role)
		}
		return nil
	})
	if err != nil {
		return nil, database.MapError(err, "user", "")
	}
	return u, nil
}
