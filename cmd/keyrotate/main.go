// Command keyrotate re-encrypts every stored profile blob under a new key.
// It is the operator-triggered rotation pass: the running service keeps its
// key immutable for the process lifetime, and rotation happens out of band.
//
// The old key defaults to the configured encryption key; the new key is
// supplied either directly (-new, encoded or raw form) or as a passphrase
// plus salt (-new-passphrase/-new-salt, argon2id-derived). With -snapshot,
// a ciphertext-only snapshot of each blob is exported to S3 first.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"

	"github.com/avoskan/profilevault/internal/backup"
	"github.com/avoskan/profilevault/internal/common"
	"github.com/avoskan/profilevault/internal/config"
	"github.com/avoskan/profilevault/internal/cryptox"
	"github.com/avoskan/profilevault/internal/extractor"
	"github.com/avoskan/profilevault/internal/flagx"
	"github.com/avoskan/profilevault/internal/logging"
	"github.com/avoskan/profilevault/internal/profile"
	"github.com/avoskan/profilevault/internal/repositories/repomanager"
)

func main() {
	ctx := context.Background()
	logger := logging.NewJSON(os.Stdout)

	cfg := config.LoadConfig()

	args := flagx.FilterArgs(os.Args[1:], []string{"-old", "-new", "-new-passphrase", "-new-salt", "-snapshot"})
	fs := flag.NewFlagSet("keyrotate", flag.ExitOnError)
	oldKey := fs.String("old", cfg.EncryptionKey, "current key material (defaults to configured key)")
	newKey := fs.String("new", "", "new key material (hex, base64, or raw string)")
	newPassphrase := fs.String("new-passphrase", "", "new key passphrase (used with -new-salt)")
	newSalt := fs.String("new-salt", "", "salt for passphrase derivation")
	snapshot := fs.Bool("snapshot", false, "export ciphertext snapshots to S3 before rotating")
	_ = fs.Parse(args)

	oldEnc, err := cryptox.New(*oldKey)
	if err != nil {
		logger.Error(ctx, "invalid old key", "error", err.Error())
		os.Exit(1)
	}

	newEnc, err := buildNewEncryptor(*newKey, *newPassphrase, *newSalt)
	if err != nil {
		logger.Error(ctx, "invalid new key", "error", err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "db open failed", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		logger.Error(ctx, "migrations failed", "error", err.Error())
		os.Exit(1)
	}

	var snapshots profile.SnapshotStore
	if *snapshot {
		store, err := backup.New(ctx, cfg)
		if err != nil {
			logger.Error(ctx, "snapshot store init failed", "error", err.Error())
			os.Exit(1)
		}
		snapshots = store
	}

	svc := profile.NewService(db, rm, oldEnc, extractor.Rules{}, snapshots, logger)

	rotated, err := svc.RotateAllKeys(ctx, oldEnc, newEnc)
	if err != nil {
		logger.Error(ctx, "rotation aborted", "rotated", rotated, "error", err.Error())
		os.Exit(1)
	}

	logger.Info(ctx, "rotation finished", "rotated", rotated)
}

func buildNewEncryptor(key, passphrase, salt string) (*cryptox.Encryptor, error) {
	if key != "" {
		return cryptox.New(key)
	}
	if passphrase != "" && salt != "" {
		derived := cryptox.DeriveKey([]byte(passphrase), []byte(salt))
		enc, err := cryptox.NewFromKey(derived)
		common.WipeByteArray(derived)
		return enc, err
	}
	return nil, errors.New("no new key supplied: use -new or -new-passphrase with -new-salt")
}
