// Package profiles provides the PostgreSQL-backed repository for profile
// rows and their encrypted blobs.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avoskan/profilevault/internal/common"
	"github.com/avoskan/profilevault/internal/dbx"
	"github.com/avoskan/profilevault/internal/models"
)

// PostgresRepository implements profile storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectProfileQuery = `
	SELECT p.id, p.user_id, p.email, p.profile_hash, p.profile_text,
	       p.is_active, p.conversation_count, p.created_at, p.last_updated,
	       b.encrypted_data, b.iv, b.tag, b.key_version, b.algorithm, b.updated_at
	FROM user_profiles p
	LEFT JOIN user_profile_blobs b ON b.profile_hash = p.profile_hash
`

func (r *PostgresRepository) scanProfile(row *sql.Row) (*models.Profile, error) {
	p := &models.Profile{}

	var userID sql.NullString
	var encryptedData, iv, tag []byte
	var keyVersion sql.NullInt64
	var algorithm sql.NullString
	var blobUpdatedAt sql.NullTime

	err := row.Scan(
		&p.ID, &userID, &p.Email, &p.ProfileHash, &p.ProfileText,
		&p.IsActive, &p.ConversationCount, &p.CreatedAt, &p.LastUpdated,
		&encryptedData, &iv, &tag, &keyVersion, &algorithm, &blobUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	p.UserID = userID.String

	if encryptedData != nil {
		p.Blob = &models.EncryptedBlob{
			ProfileHash:   p.ProfileHash,
			EncryptedData: encryptedData,
			IV:            iv,
			Tag:           tag,
			KeyVersion:    int(keyVersion.Int64),
			Algorithm:     algorithm.String,
			UpdatedAt:     blobUpdatedAt.Time,
		}
	}

	return p, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, selectProfileQuery+` WHERE p.user_id = $1`, userID)
	return r.scanProfile(row)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, selectProfileQuery+` WHERE p.email = $1 ORDER BY p.created_at LIMIT 1`, email)
	return r.scanProfile(row)
}

func (r *PostgresRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query :=
		`INSERT INTO user_profiles (user_id, email, profile_hash, profile_text, is_active, conversation_count)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, last_updated
		 `

	err := r.db.QueryRowContext(ctx, query,
		nullable(profile.UserID), profile.Email, profile.ProfileHash,
		profile.ProfileText, profile.IsActive, profile.ConversationCount,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.LastUpdated)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return profile, nil
}

// Update rewrites the mutable profile columns and bumps last_updated.
func (r *PostgresRepository) Update(ctx context.Context, profile *models.Profile) error {
	query :=
		`UPDATE user_profiles
		 SET user_id = $2, email = $3, profile_text = $4, is_active = $5,
		     conversation_count = $6, last_updated = now()
		 WHERE profile_hash = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		profile.ProfileHash, nullable(profile.UserID), profile.Email,
		profile.ProfileText, profile.IsActive, profile.ConversationCount)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	return nil
}

// UpsertBlob writes the encrypted payload keyed by profile hash, updating in
// place when a blob already exists.
func (r *PostgresRepository) UpsertBlob(ctx context.Context, blob *models.EncryptedBlob) error {
	query :=
		`INSERT INTO user_profile_blobs (profile_hash, encrypted_data, iv, tag, key_version, algorithm, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (profile_hash)
		 DO UPDATE SET
		 	encrypted_data = EXCLUDED.encrypted_data,
		 	iv = EXCLUDED.iv,
		 	tag = EXCLUDED.tag,
		 	key_version = EXCLUDED.key_version,
		 	algorithm = EXCLUDED.algorithm,
		 	updated_at = now()
		 `

	_, err := r.db.ExecContext(ctx, query,
		blob.ProfileHash, blob.EncryptedData, blob.IV, blob.Tag, blob.KeyVersion, blob.Algorithm)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// SelectAllBlobs returns every encrypted blob. Used by the operator
// key-rotation pass.
func (r *PostgresRepository) SelectAllBlobs(ctx context.Context) ([]*models.EncryptedBlob, error) {
	query := `SELECT profile_hash, encrypted_data, iv, tag, key_version, algorithm, updated_at FROM user_profile_blobs`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select blobs: %w", err)
	}
	defer rows.Close()

	var result []*models.EncryptedBlob
	for rows.Next() {
		var item models.EncryptedBlob
		if err := rows.Scan(
			&item.ProfileHash, &item.EncryptedData, &item.IV, &item.Tag,
			&item.KeyVersion, &item.Algorithm, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
