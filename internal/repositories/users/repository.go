package users

import (
	"context"

	"github.com/avoskan/profilevault/internal/models"
)

// Repository is a read-only directory over the externally owned user
// records. Profile operations resolve existence and the legacy email lookup
// key through it.
type Repository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}
