package repomanager

import (
	"context"
	"database/sql"

	"github.com/avoskan/profilevault/internal/dbx"
	"github.com/avoskan/profilevault/internal/repositories/profiles"
	"github.com/avoskan/profilevault/internal/repositories/users"
)

// RepositoryManager hands out repositories bound to a DB handle or an open
// transaction, and runs schema migrations.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
}
