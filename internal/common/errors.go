// Package common defines shared constants and sentinel errors used across
// the profile subsystem. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Construction-time error: key material absent or shorter than 256 bits.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrDecryptionFailed covers every decryption failure mode (wrong key,
	// corrupted ciphertext, tampered tag, mismatched associated data,
	// malformed nonce). The message carries no plaintext, key or
	// ciphertext material.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrUserNotFound makes profile operations no-ops for unknown users.
	ErrUserNotFound = errors.New("user not found")

	// ErrExtractionFailed is swallowed at the manager boundary and treated
	// as "profile unchanged".
	ErrExtractionFailed = errors.New("extraction failed")
)
