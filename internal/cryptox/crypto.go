// Package cryptox implements authenticated encryption for profile text.
//
// Profiles are sealed with AES-256-GCM under a single process-wide key. Every
// call generates a fresh 128-bit nonce, and the fixed associated-data tag
// "user-profile" is bound into the authentication tag so ciphertext cannot be
// replayed into a different context. The GCM tag is stored detached from the
// ciphertext, matching the blob schema.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/avoskan/profilevault/internal/common"
)

const (
	// KeySize is the required key length in bytes (AES-256).
	KeySize = 32

	// NonceSize is the per-encryption nonce length in bytes (128 bits).
	NonceSize = 16

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16

	// Algorithm identifies the cipher in stored blobs.
	Algorithm = "aes-256-gcm"

	// CurrentKeyVersion is written into every payload. Rotation re-encrypts
	// under new material but keeps the same version semantics.
	CurrentKeyVersion = 1
)

// associatedData is authenticated but not encrypted; it pins ciphertext to
// the profile context.
var associatedData = []byte("user-profile")

// Payload is the result of one encryption: detached ciphertext, nonce and
// tag plus key metadata.
type Payload struct {
	EncryptedData []byte
	IV            []byte
	Tag           []byte
	KeyVersion    int
	Algorithm     string
	EncryptedAt   time.Time
}

// Encryptor seals and opens profile text under one immutable key. Rotation
// constructs a new Encryptor rather than mutating an existing one.
type Encryptor struct {
	aead cipher.AEAD
}

// New builds an Encryptor from key material supplied as a string.
//
// The preferred forms are encoded keys: 64 hex characters or base64 decoding
// to exactly 32 bytes. As a compatibility fallback, any raw string of at
// least 32 bytes is accepted and its first 32 bytes are used. Shorter
// material fails with common.ErrInvalidKey.
func New(keyMaterial string) (*Encryptor, error) {
	key, err := resolveKey(keyMaterial)
	if err != nil {
		return nil, err
	}
	return NewFromKey(key)
}

// NewFromKey builds an Encryptor from a raw 32-byte key.
func NewFromKey(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, common.ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, common.ErrInvalidKey
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, common.ErrInvalidKey
	}

	return &Encryptor{aead: aead}, nil
}

func resolveKey(material string) ([]byte, error) {
	if material == "" {
		return nil, common.ErrInvalidKey
	}

	if len(material) == 2*KeySize {
		if key, err := hex.DecodeString(material); err == nil {
			return key, nil
		}
	}

	if key, err := base64.StdEncoding.DecodeString(material); err == nil && len(key) == KeySize {
		return key, nil
	}

	// Raw-string fallback: first 32 bytes of sufficiently long material.
	raw := []byte(material)
	if len(raw) >= KeySize {
		return raw[:KeySize], nil
	}

	return nil, common.ErrInvalidKey
}

// Encrypt seals plaintext with a fresh random nonce. Two calls with the same
// plaintext never produce the same ciphertext, nonce or tag.
func (e *Encryptor) Encrypt(plaintext string) (*Payload, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	sealed := e.aead.Seal(nil, nonce, []byte(plaintext), associatedData)

	// Seal appends the tag to the ciphertext; the blob schema keeps them apart.
	split := len(sealed) - TagSize

	return &Payload{
		EncryptedData: sealed[:split],
		IV:            nonce,
		Tag:           sealed[split:],
		KeyVersion:    CurrentKeyVersion,
		Algorithm:     Algorithm,
		EncryptedAt:   time.Now().UTC(),
	}, nil
}

// Decrypt opens a detached ciphertext/nonce/tag triple. Any failure — wrong
// key, corrupted ciphertext, tampered tag, malformed nonce — surfaces as the
// single common.ErrDecryptionFailed with no detail about the inputs.
func (e *Encryptor) Decrypt(encryptedData, iv, tag []byte) (string, error) {
	if len(iv) != NonceSize || len(tag) != TagSize {
		return "", common.ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(encryptedData)+len(tag))
	sealed = append(sealed, encryptedData...)
	sealed = append(sealed, tag...)

	plaintext, err := e.aead.Open(nil, iv, sealed, associatedData)
	if err != nil {
		return "", common.ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// Rotate decrypts under oldEnc and re-encrypts under newEnc, producing fresh
// cryptographic material for the same plaintext. A wrong old key fails with
// common.ErrDecryptionFailed.
func Rotate(oldEnc, newEnc *Encryptor, encryptedData, iv, tag []byte) (*Payload, error) {
	plaintext, err := oldEnc.Decrypt(encryptedData, iv, tag)
	if err != nil {
		return nil, err
	}
	return newEnc.Encrypt(plaintext)
}

// DeriveKey derives a 32-byte key from a passphrase and salt with argon2id.
// Used by the operator rotation tool when keys are supplied as passphrases.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}
