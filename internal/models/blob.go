package models

import "time"

// EncryptedBlob holds the ciphertext for one profile, joined to Profile by
// ProfileHash. IV and Tag are the per-encryption nonce and authentication tag.
type EncryptedBlob struct {
	ProfileHash   string
	EncryptedData []byte
	IV            []byte
	Tag           []byte
	KeyVersion    int
	Algorithm     string
	UpdatedAt     time.Time
}
