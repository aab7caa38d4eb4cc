package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// DefaultLimit and MaxLimit bound a listing.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Resource   string
	ResourceID *uuid.UUID
	ActorID    *uuid.UUID
	Limit      int
}

// Repository handles audit log persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes an entry. Writing the same ID twice is a no-op.
func (r *Repository) Insert(ctx context.Context, e *models.AuditLog) error {
	const q = `INSERT INTO audit_logs (id, actor_id, action, resource, resource_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`
	var detail []byte
	if len(e.Detail) > 0 {
		detail = e.Detail
	}
	_, err := r.pool.Exec(ctx, q, e.ID, e.ActorID, e.Action, e.Resource, e.ResourceID, detail, e.CreatedAt)
	return database.MapError(err, "audit log", "")
}

// List returns the newest entries matching f.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	const q = `SELECT id, actor_id, action, resource, resource_id, detail, created_at FROM audit_logs
		WHERE ($1 = '' OR resource = $1)
		AND ($2::uuid IS NULL OR resource_id = $2)
		AND ($3::uuid IS NULL OR actor_id = $3)
		ORDER BY created_at DESC, id
		LIMIT $4`
	rows, err := r.pool.Query(ctx, q, f.Resource, f.ResourceID, f.ActorID, clampLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.AuditLog, error) {
		var e models.AuditLog
		var detail []byte
		err := row.Scan(&e.ID, &e.ActorID, &e.Action, &e.Resource, &e.ResourceID, &detail, &e.CreatedAt)
		if len(detail) > 0 {
			e.Detail = detail
		}
		return e, err
	})
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}
