// Package profile implements the profile manager: the read/write lifecycle
// for per-user financial profiles. It decides when to encrypt, decrypt and
// anonymize, and when to fall back to legacy plaintext rows.
//
// Two consumer paths exist and must not be mixed: the AI-context builder
// calls GetOrCreateProfile / UpdateProfileFromConversation and only ever
// sees anonymized text; the user-facing display calls GetOriginalProfile.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avoskan/profilevault/internal/anonymizer"
	"github.com/avoskan/profilevault/internal/common"
	"github.com/avoskan/profilevault/internal/cryptox"
	"github.com/avoskan/profilevault/internal/dbx"
	"github.com/avoskan/profilevault/internal/extractor"
	"github.com/avoskan/profilevault/internal/logging"
	"github.com/avoskan/profilevault/internal/models"
	"github.com/avoskan/profilevault/internal/repositories/repomanager"
)

// SnapshotStore persists ciphertext-only blob snapshots outside the
// database. Satisfied by backup.Store.
type SnapshotStore interface {
	Export(ctx context.Context, blob *models.EncryptedBlob) (string, error)
	Fetch(ctx context.Context, key string) (*models.EncryptedBlob, error)
}

// Service orchestrates encryption, anonymization, extraction and
// persistence. All operations are independent per user id; the only shared
// state is the immutable encryptor.
type Service struct {
	db        *sql.DB
	rm        repomanager.RepositoryManager
	enc       *cryptox.Encryptor
	ext       extractor.Extractor
	snapshots SnapshotStore
	logger    logging.Logger
}

// NewService wires the profile manager. snapshots may be nil when no
// snapshot store is configured.
func NewService(db *sql.DB, rm repomanager.RepositoryManager, enc *cryptox.Encryptor,
	ext extractor.Extractor, snapshots SnapshotStore, logger logging.Logger) *Service {
	return &Service{
		db:        db,
		rm:        rm,
		enc:       enc,
		ext:       ext,
		snapshots: snapshots,
		logger:    logger,
	}
}

// resolveUser maps a missing user row to ErrUserNotFound so callers can turn
// the operation into a no-op.
func (s *Service) resolveUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.rm.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// findOrCreate locates the user's profile row, falling back to the legacy
// email lookup, and creates a fresh row (minting a new profile hash) when
// neither matches. A row recovered by email is relinked to the user id,
// since user id wins when the two lookups could diverge.
func (s *Service) findOrCreate(ctx context.Context, user *models.User) (*models.Profile, error) {
	repo := s.rm.Profiles(s.db)

	p, err := repo.GetByUserID(ctx, user.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if user.Email != "" {
		p, err = repo.GetByEmail(ctx, user.Email)
		if err == nil {
			if p.UserID != user.ID {
				p.UserID = user.ID
				if uerr := repo.Update(ctx, p); uerr != nil {
					return nil, uerr
				}
				s.logger.Info(ctx, "relinked legacy profile to user", "profile_hash", p.ProfileHash)
			}
			return p, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}

	p = &models.Profile{
		UserID:      user.ID,
		Email:       user.Email,
		ProfileHash: uuid.NewString(),
		IsActive:    true,
	}
	return repo.Create(ctx, p)
}

// loadOriginal returns the profile's original text: the decrypted blob when
// one exists, the legacy plaintext mirror otherwise. Decryption failure is
// logged and degrades to the legacy field; it never reaches the caller.
func (s *Service) loadOriginal(ctx context.Context, p *models.Profile) string {
	if p.Blob == nil {
		return p.ProfileText
	}

	text, err := s.enc.Decrypt(p.Blob.EncryptedData, p.Blob.IV, p.Blob.Tag)
	if err != nil {
		s.logger.Error(ctx, "profile decryption failed, falling back to legacy text",
			"profile_hash", p.ProfileHash, "key_version", p.Blob.KeyVersion)
		return p.ProfileText
	}
	return text
}

// GetOrCreateProfile returns the anonymized profile text for AI context
// building. Unknown users yield "" without creating anything. This is the
// only read path the AI-context collaborator should call.
func (s *Service) GetOrCreateProfile(ctx context.Context, userID string) (string, error) {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return "", nil
		}
		return "", err
	}

	p, err := s.findOrCreate(ctx, user)
	if err != nil {
		return "", err
	}

	original := s.loadOriginal(ctx, p)
	res := anonymizer.New().Anonymize(original)
	return res.Text, nil
}

// GetOriginalProfile returns the unanonymized profile text for the user's
// own display. Stray anonymization tokens found in storage are defensively
// replaced with generic placeholders.
func (s *Service) GetOriginalProfile(ctx context.Context, userID string) (string, error) {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return "", nil
		}
		return "", err
	}

	p, err := s.findOrCreate(ctx, user)
	if err != nil {
		return "", err
	}

	original := s.loadOriginal(ctx, p)
	if anonymizer.ContainsAnonymizedTokens(original) {
		s.logger.Warn(ctx, "anonymized tokens found in stored profile, sanitizing display",
			"profile_hash", p.ProfileHash)
		original = anonymizer.Deanonymize(original)
	}
	return original, nil
}

// UpdateProfile encrypts newText and persists it. A no-op for unknown users.
// This path always writes through encryption, migrating legacy
// plaintext-only rows to encrypted state; once encrypted, a profile never
// regresses to plaintext.
func (s *Service) UpdateProfile(ctx context.Context, userID string, newText string) error {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil
		}
		return err
	}

	p, err := s.findOrCreate(ctx, user)
	if err != nil {
		return err
	}

	return s.persist(ctx, p, newText)
}

// persist encrypts text and lands the profile row update and the blob
// upsert in one transaction keyed by profile hash.
func (s *Service) persist(ctx context.Context, p *models.Profile, text string) error {
	payload, err := s.enc.Encrypt(text)
	if err != nil {
		return fmt.Errorf("profile encryption failed: %w", err)
	}

	// the legacy mirror is emptied once the row is encrypted
	p.ProfileText = ""

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Profiles(tx)

		if err := repo.Update(ctx, p); err != nil {
			return err
		}

		return repo.UpsertBlob(ctx, &models.EncryptedBlob{
			ProfileHash:   p.ProfileHash,
			EncryptedData: payload.EncryptedData,
			IV:            payload.IV,
			Tag:           payload.Tag,
			KeyVersion:    payload.KeyVersion,
			Algorithm:     payload.Algorithm,
		})
	})
}

// UpdateProfileFromConversation feeds one conversation turn through the
// extractor and persists the result only when the text actually changed.
// Extraction failure is logged and treated as "no new information".
func (s *Service) UpdateProfileFromConversation(ctx context.Context, userID string, conversation *models.Conversation) error {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil
		}
		return err
	}

	p, err := s.findOrCreate(ctx, user)
	if err != nil {
		return err
	}

	current := s.loadOriginal(ctx, p)

	updated, err := s.ext.ExtractAndUpdateProfile(ctx, user.ID, conversation, current)
	if err != nil {
		s.logger.Warn(ctx, "profile extraction failed, keeping profile unchanged",
			"profile_hash", p.ProfileHash)
		return nil
	}

	if updated == current {
		return nil
	}

	p.ConversationCount++
	return s.persist(ctx, p, updated)
}

// RecoverProfile restores backupText. When a differing current profile
// exists the backup is appended under a delimited recovered-data section
// instead of overwriting; otherwise the backup is restored verbatim.
func (s *Service) RecoverProfile(ctx context.Context, userID string, backupText string) error {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil
		}
		return err
	}

	p, err := s.findOrCreate(ctx, user)
	if err != nil {
		return err
	}

	current := s.loadOriginal(ctx, p)

	merged := backupText
	if current != "" && current != backupText {
		merged = current +
			"\n\n--- RECOVERED DATA (" + time.Now().UTC().Format(time.RFC3339) + ") ---\n" +
			backupText
	}

	return s.persist(ctx, p, merged)
}

// RecoverProfileFromSnapshot fetches a ciphertext snapshot, decrypts it with
// enc (the key the snapshot was taken under), and funnels the plaintext
// through RecoverProfile.
func (s *Service) RecoverProfileFromSnapshot(ctx context.Context, userID, snapshotKey string, enc *cryptox.Encryptor) error {
	if s.snapshots == nil {
		return errors.New("no snapshot store configured")
	}

	blob, err := s.snapshots.Fetch(ctx, snapshotKey)
	if err != nil {
		return err
	}

	text, err := enc.Decrypt(blob.EncryptedData, blob.IV, blob.Tag)
	if err != nil {
		return err
	}

	return s.RecoverProfile(ctx, userID, text)
}

// GetProfileHistory returns the current profile as a single-element
// sequence. True history is not retained; see DESIGN.md.
func (s *Service) GetProfileHistory(ctx context.Context, userID string) ([]string, error) {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return []string{}, nil
		}
		return nil, err
	}

	p, err := s.findOrCreate(ctx, user)
	if err != nil {
		return nil, err
	}

	return []string{s.loadOriginal(ctx, p)}, nil
}

// RotateAllKeys re-encrypts every stored blob from oldEnc to newEnc,
// exporting a ciphertext snapshot first when a snapshot store is configured.
// Returns the number of rotated blobs; stops at the first failure so a wrong
// old key aborts before corrupting anything.
func (s *Service) RotateAllKeys(ctx context.Context, oldEnc, newEnc *cryptox.Encryptor) (int, error) {
	repo := s.rm.Profiles(s.db)

	blobs, err := repo.SelectAllBlobs(ctx)
	if err != nil {
		return 0, err
	}

	rotated := 0
	for _, blob := range blobs {
		if s.snapshots != nil {
			if _, err := s.snapshots.Export(ctx, blob); err != nil {
				return rotated, fmt.Errorf("snapshot before rotation failed: %w", err)
			}
		}

		payload, err := cryptox.Rotate(oldEnc, newEnc, blob.EncryptedData, blob.IV, blob.Tag)
		if err != nil {
			return rotated, fmt.Errorf("rotation failed for profile %s: %w", blob.ProfileHash, err)
		}

		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return s.rm.Profiles(tx).UpsertBlob(ctx, &models.EncryptedBlob{
				ProfileHash:   blob.ProfileHash,
				EncryptedData: payload.EncryptedData,
				IV:            payload.IV,
				Tag:           payload.Tag,
				KeyVersion:    payload.KeyVersion,
				Algorithm:     payload.Algorithm,
			})
		})
		if err != nil {
			return rotated, err
		}

		rotated++
	}

	s.logger.Info(ctx, "key rotation pass complete", "rotated", rotated)
	return rotated, nil
}
