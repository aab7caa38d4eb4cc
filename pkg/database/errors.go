package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aura-events/backend/pkg/apperr"
)

// Postgres error codes the repositories translate.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == CodeUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == CodeForeignKeyViolation
}

// MapError turns driver errors into domain errors for resource/key.
// Errors it does not recognise are wrapped and returned as is.
func MapError(err error, resource, key string) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return apperr.NotFound(resource, key)
	case IsUniqueViolation(err):
		return apperr.Conflict(fmt.Sprintf("%s already exists", resource))
	case IsForeignKeyViolation(err):
		var pgErr *pgconn.PgError
		errors.As(err, &pgErr)
		return apperr.NotFound(referencedResource(pgErr.ConstraintName), "")
	default:
		return fmt.Errorf("%s: %w", resource, err)
	}
}

func isDomainError(err error) bool {
	return apperr.IsNotFound(err) || apperr.IsConflict(err) || apperr.IsForbidden(err) || apperr.IsValidation(err)
}

// referencedResource guesses the missing row's resource from a "<table>_<column>_fkey" constraint.
func referencedResource(constraint string) string {
	switch constraint {
	case "event_organizers_user_id_fkey", "user_roles_user_id_fkey", "user_permissions_user_id_fkey", "events_created_by_fkey":
		return "user"
	case "event_organizers_event_id_fkey":
		return "event"
	case "user_roles_role_id_fkey", "role_permissions_role_id_fkey":
		return "role"
	case "role_permissions_permission_id_fkey", "user_permissions_permission_id_fkey":
		return "permission"
	}
	return "referenced record"
}
