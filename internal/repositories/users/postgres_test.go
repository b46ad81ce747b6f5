package users

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskan/profilevault/internal/common"
)

func TestGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "created_at"}).
		AddRow("u1", "jane@example.com", time.Now())
	mock.ExpectQuery(`FROM users`).WithArgs("u1").WillReturnRows(rows)

	u, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectQuery(`FROM users`).WithArgs("absent").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "created_at"}))

	_, err = repo.GetByID(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
