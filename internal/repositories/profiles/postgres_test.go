package profiles

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskan/profilevault/internal/common"
	"github.com/avoskan/profilevault/internal/models"
)

var profileColumns = []string{
	"id", "user_id", "email", "profile_hash", "profile_text",
	"is_active", "conversation_count", "created_at", "last_updated",
	"encrypted_data", "iv", "tag", "key_version", "algorithm", "updated_at",
}

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestGetByUserIDWithBlob(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(profileColumns).AddRow(
		"p1", "u1", "jane@example.com", "hash1", "",
		true, 3, now, now,
		[]byte{0xDE, 0xAD}, []byte{0x01}, []byte{0x02}, 1, "aes-256-gcm", now,
	)
	mock.ExpectQuery(`FROM user_profiles p`).WithArgs("u1").WillReturnRows(rows)

	p, err := repo.GetByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "hash1", p.ProfileHash)
	require.NotNil(t, p.Blob)
	assert.Equal(t, []byte{0xDE, 0xAD}, p.Blob.EncryptedData)
	assert.Equal(t, 1, p.Blob.KeyVersion)
	assert.True(t, p.Encrypted())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUserIDLegacyPlaintext(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(profileColumns).AddRow(
		"p1", "u1", "", "hash1", "legacy text",
		true, 0, now, now,
		nil, nil, nil, nil, nil, nil,
	)
	mock.ExpectQuery(`FROM user_profiles p`).WithArgs("u1").WillReturnRows(rows)

	p, err := repo.GetByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "legacy text", p.ProfileText)
	assert.Nil(t, p.Blob)
	assert.False(t, p.Encrypted())
}

func TestGetByUserIDNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`FROM user_profiles p`).WithArgs("absent").
		WillReturnRows(sqlmock.NewRows(profileColumns))

	_, err := repo.GetByUserID(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByEmail(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(profileColumns).AddRow(
		"p1", nil, "jane@example.com", "hash1", "pre-linkage",
		true, 0, now, now,
		nil, nil, nil, nil, nil, nil,
	)
	mock.ExpectQuery(`WHERE p\.email = \$1`).WithArgs("jane@example.com").WillReturnRows(rows)

	p, err := repo.GetByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "", p.UserID)
	assert.Equal(t, "pre-linkage", p.ProfileText)
}

func TestCreate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO user_profiles`).
		WithArgs("u1", "jane@example.com", "hash1", "", true, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "last_updated"}).AddRow("p1", now, now))

	p, err := repo.Create(context.Background(), &models.Profile{
		UserID: "u1", Email: "jane@example.com", ProfileHash: "hash1", IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestUpdateMissingRow(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE user_profiles`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Profile{ProfileHash: "absent"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsertBlob(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO user_profile_blobs`).
		WithArgs("hash1", []byte{0x01}, []byte{0x02}, []byte{0x03}, 1, "aes-256-gcm").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertBlob(context.Background(), &models.EncryptedBlob{
		ProfileHash: "hash1", EncryptedData: []byte{0x01}, IV: []byte{0x02},
		Tag: []byte{0x03}, KeyVersion: 1, Algorithm: "aes-256-gcm",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectAllBlobs(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"profile_hash", "encrypted_data", "iv", "tag", "key_version", "algorithm", "updated_at"}).
		AddRow("h1", []byte{0x01}, []byte{0x02}, []byte{0x03}, 1, "aes-256-gcm", now).
		AddRow("h2", []byte{0x04}, []byte{0x05}, []byte{0x06}, 1, "aes-256-gcm", now)
	mock.ExpectQuery(`FROM user_profile_blobs`).WillReturnRows(rows)

	blobs, err := repo.SelectAllBlobs(context.Background())
	require.NoError(t, err)
	require.Len(t, blobs, 2)
	assert.Equal(t, "h1", blobs[0].ProfileHash)
	assert.Equal(t, "h2", blobs[1].ProfileHash)
}
