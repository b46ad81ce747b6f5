package models

import "time"

// Profile is the per-user row holding profile metadata and the legacy
// plaintext mirror. Exactly one Profile exists per user id; the email column
// only recovers rows created before user-id linkage was reliable.
type Profile struct {
	ID                string
	UserID            string
	Email             string
	ProfileHash       string
	ProfileText       string
	IsActive          bool
	ConversationCount int
	CreatedAt         time.Time
	LastUpdated       time.Time

	// Blob is the encrypted payload joined by ProfileHash, nil for rows
	// still in legacy plaintext state.
	Blob *EncryptedBlob
}

// Encrypted reports whether the profile has transitioned to encrypted state.
func (p *Profile) Encrypted() bool {
	return p.Blob != nil
}
