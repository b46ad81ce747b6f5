package profiles

import (
	"context"

	"github.com/avoskan/profilevault/internal/models"
)

// Repository persists Profile rows and their encrypted blobs. Lookups return
// the profile joined with its blob when one exists; a missing blob means the
// row is still in legacy plaintext state.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	UpsertBlob(ctx context.Context, blob *models.EncryptedBlob) error
	SelectAllBlobs(ctx context.Context) ([]*models.EncryptedBlob, error)
}
