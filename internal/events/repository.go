package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/database"
)

const eventColumns = `e.id, e.name, e.event_type, e.description, e.image_url, e.capacity_limit, e.waiting_list_size,
	e.automatic_ticket_upgrade, e.start_date, e.end_date, e.location, e.status, e.cancellation_policy, e.created_by,
	ARRAY(SELECT o.user_id FROM event_organizers o WHERE o.event_id = e.id ORDER BY o.user_id),
	e.deleted_at, e.created_at, e.updated_at`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Name, &e.EventType, &e.Description, &e.ImageURL, &e.CapacityLimit, &e.WaitingListSize,
		&e.AutomaticTicketUpgrade, &e.StartDate, &e.EndDate, &e.Location, &e.Status, &e.CancellationPolicy, &e.CreatedBy,
		&e.OrganizerIDs, &e.DeletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an event and its organizers in one transaction.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (name, event_type, description, image_url, capacity_limit, waiting_list_size,
		automatic_ticket_upgrade, start_date, end_date, location, status, cancellation_policy, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, q, e.Name, e.EventType, e.Description, e.ImageURL, e.CapacityLimit, e.WaitingListSize,
			e.AutomaticTicketUpgrade, e.StartDate, e.EndDate, e.Location, e.Status, e.CancellationPolicy, e.CreatedBy).
			Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return err
		}
		return syncOrganizers(ctx, tx, e.ID, e.OrganizerIDs)
	})
	return database.MapError(err, "event", "")
}

// GetByID returns an event. Trashed events are NotFound unless withTrashed.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, withTrashed bool) (*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`
	if !withTrashed {
		q += ` AND e.deleted_at IS NULL`
	}
	e, err := scanEvent(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, database.MapError(err, "event", "")
	}
	return e, nil
}

// ListVisible returns non-trashed events the actor may list. all skips the
// status/ownership filter for top-ranked actors.
func (r *Repository) ListVisible(ctx context.Context, actorID uuid.UUID, all bool) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.deleted_at IS NULL
		AND ($2 OR e.status <> 'draft' OR e.created_by = $1
			OR EXISTS (SELECT 1 FROM event_organizers o WHERE o.event_id = e.id AND o.user_id = $1))
		ORDER BY e.start_date, e.id`
	rows, err := r.pool.Query(ctx, q, actorID, all)
	if err != nil {
		return nil, database.MapError(err, "event", "")
	}
	defer rows.Close()

	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, database.MapError(err, "event", "")
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update writes every mutable column and replaces the organizer set.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET name = $1, event_type = $2, description = $3, image_url = $4, capacity_limit = $5,
		waiting_list_size = $6, automatic_ticket_upgrade = $7, start_date = $8, end_date = $9, location = $10,
		status = $11, cancellation_policy = $12, updated_at = NOW()
		WHERE id = $13 AND deleted_at IS NULL
		RETURNING updated_at`
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, q, e.Name, e.EventType, e.Description, e.ImageURL, e.CapacityLimit, e.WaitingListSize,
			e.AutomaticTicketUpgrade, e.StartDate, e.EndDate, e.Location, e.Status, e.CancellationPolicy, e.ID).
			Scan(&e.UpdatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM event_organizers WHERE event_id = $1`, e.ID); err != nil {
			return err
		}
		return syncOrganizers(ctx, tx, e.ID, e.OrganizerIDs)
	})
	return database.MapError(err, "event", "")
}

func syncOrganizers(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	const q = `INSERT INTO event_organizers (event_id, user_id) VALUES ($1, $2) ON CONFLICT (event_id, user_id) DO NOTHING`
	batch := &pgx.Batch{}
	for _, id := range userIDs {
		batch.Queue(q, eventID, id)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// SetImage stores the cover image URL.
func (r *Repository) SetImage(ctx context.Context, id uuid.UUID, url string) error {
	return r.execOne(ctx, `UPDATE events SET image_url = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`, url, id)
}

// SoftDelete moves the event to the trash.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `UPDATE events SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

// Restore takes the event out of the trash.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `UPDATE events SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`, id)
}

// ForceDelete removes the event row; organizers cascade.
func (r *Repository) ForceDelete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `DELETE FROM events WHERE id = $1`, id)
}

// AddOrganizer delegates editing of the event to userID.
func (r *Repository) AddOrganizer(ctx context.Context, eventID, userID uuid.UUID) error {
	const q = `INSERT INTO event_organizers (event_id, user_id) VALUES ($1, $2)`
	_, err := r.pool.Exec(ctx, q, eventID, userID)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("user is already an organizer of this event")
	}
	return database.MapError(err, "event", "")
}

// RemoveOrganizer revokes userID's delegation.
func (r *Repository) RemoveOrganizer(ctx context.Context, eventID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_organizers WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return database.MapError(err, "event", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("organizer", userID.String())
	}
	return nil
}

func (r *Repository) execOne(ctx context.Context, q string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return database.MapError(err, "event", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event", "")
	}
	return nil
}
