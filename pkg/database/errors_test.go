package database

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/aura-events/backend/pkg/apperr"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "role", "x"))

	err := MapError(pgx.ErrNoRows, "role", "ghost")
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, `role "ghost" not found`, err.Error())

	err = MapError(&pgconn.PgError{Code: CodeUniqueViolation}, "permission", "")
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, "permission already exists", err.Error())

	err = MapError(&pgconn.PgError{Code: CodeForeignKeyViolation, ConstraintName: "event_organizers_user_id_fkey"}, "event", "")
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, "user not found", err.Error())

	held := apperr.Conflict(`role "moderator" is still assigned to 1 account(s)`)
	assert.Same(t, held, MapError(held, "role", ""))

	boom := errors.New("connection refused")
	err = MapError(boom, "event", "")
	assert.ErrorIs(t, err, boom)
	assert.False(t, apperr.IsNotFound(err))
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	assert.NoError(t, err)
	assert.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
}
