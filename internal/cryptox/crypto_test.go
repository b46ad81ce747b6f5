package cryptox

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskan/profilevault/internal/common"
)

const testKey = "0123456789abcdef0123456789abcdef" // 32 raw bytes

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	e, err := New(testKey)
	require.NoError(t, err)
	return e
}

func TestNewRejectsShortKey(t *testing.T) {
	for _, material := range []string{"", "short", strings.Repeat("x", 31)} {
		_, err := New(material)
		assert.ErrorIs(t, err, common.ErrInvalidKey, "material %q", material)
	}
}

func TestNewAcceptsEncodedKeys(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, KeySize)

	_, err := New(hex.EncodeToString(raw))
	assert.NoError(t, err)

	_, err = New(base64.StdEncoding.EncodeToString(raw))
	assert.NoError(t, err)
}

func TestEncodedAndRawFormsAreDistinctKeys(t *testing.T) {
	raw := []byte(testKey)

	rawEnc, err := New(testKey)
	require.NoError(t, err)

	hexEnc, err := New(hex.EncodeToString(raw))
	require.NoError(t, err)

	p, err := rawEnc.Encrypt("secret")
	require.NoError(t, err)

	// The hex form decodes to the raw bytes, so both must open the payload.
	got, err := hexEnc.Decrypt(p.EncryptedData, p.IV, p.Tag)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e := newTestEncryptor(t)

	for _, s := range []string{
		"x",
		"Jane Smith, earning $80,000 in Boston, MA",
		strings.Repeat("long profile text ", 500),
		"unicode: žņā 日本語",
	} {
		p, err := e.Encrypt(s)
		require.NoError(t, err)
		assert.Equal(t, CurrentKeyVersion, p.KeyVersion)
		assert.Equal(t, Algorithm, p.Algorithm)
		assert.Len(t, p.IV, NonceSize)
		assert.Len(t, p.Tag, TagSize)

		got, err := e.Decrypt(p.EncryptedData, p.IV, p.Tag)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestNonceFreshness(t *testing.T) {
	e := newTestEncryptor(t)

	p1, err := e.Encrypt("same plaintext")
	require.NoError(t, err)
	p2, err := e.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, p1.IV, p2.IV)
	assert.NotEqual(t, p1.EncryptedData, p2.EncryptedData)
	assert.NotEqual(t, p1.Tag, p2.Tag)
}

func TestTamperDetection(t *testing.T) {
	e := newTestEncryptor(t)

	p, err := e.Encrypt("sensitive profile")
	require.NoError(t, err)

	flip := func(b []byte) []byte {
		c := append([]byte(nil), b...)
		c[0] ^= 0xFF
		return c
	}

	_, err = e.Decrypt(flip(p.EncryptedData), p.IV, p.Tag)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)

	_, err = e.Decrypt(p.EncryptedData, flip(p.IV), p.Tag)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)

	_, err = e.Decrypt(p.EncryptedData, p.IV, flip(p.Tag))
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestMalformedNonce(t *testing.T) {
	e := newTestEncryptor(t)

	p, err := e.Encrypt("x")
	require.NoError(t, err)

	_, err = e.Decrypt(p.EncryptedData, p.IV[:8], p.Tag)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)

	_, err = e.Decrypt(p.EncryptedData, p.IV, p.Tag[:4])
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestKeyIsolation(t *testing.T) {
	a := newTestEncryptor(t)
	b, err := New("another-32-byte-encryption-key!!")
	require.NoError(t, err)

	p, err := a.Encrypt("only for key A")
	require.NoError(t, err)

	_, err = b.Decrypt(p.EncryptedData, p.IV, p.Tag)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestErrorCarriesNoPlaintext(t *testing.T) {
	e := newTestEncryptor(t)

	p, err := e.Encrypt("Jane Smith top secret")
	require.NoError(t, err)

	other, err := New("another-32-byte-encryption-key!!")
	require.NoError(t, err)

	_, err = other.Decrypt(p.EncryptedData, p.IV, p.Tag)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "Jane")
	assert.NotContains(t, err.Error(), testKey)
}

func TestRotate(t *testing.T) {
	oldEnc := newTestEncryptor(t)
	newEnc, err := New("another-32-byte-encryption-key!!")
	require.NoError(t, err)

	p, err := oldEnc.Encrypt("carried across rotation")
	require.NoError(t, err)

	rotated, err := Rotate(oldEnc, newEnc, p.EncryptedData, p.IV, p.Tag)
	require.NoError(t, err)
	assert.Equal(t, CurrentKeyVersion, rotated.KeyVersion)
	assert.NotEqual(t, p.EncryptedData, rotated.EncryptedData)

	got, err := newEnc.Decrypt(rotated.EncryptedData, rotated.IV, rotated.Tag)
	require.NoError(t, err)
	assert.Equal(t, "carried across rotation", got)

	// old key can no longer open the rotated blob
	_, err = oldEnc.Decrypt(rotated.EncryptedData, rotated.IV, rotated.Tag)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestRotateWrongOldKey(t *testing.T) {
	oldEnc := newTestEncryptor(t)
	wrong, err := New("another-32-byte-encryption-key!!")
	require.NoError(t, err)

	p, err := oldEnc.Encrypt("x")
	require.NoError(t, err)

	_, err = Rotate(wrong, oldEnc, p.EncryptedData, p.IV, p.Tag)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	k1 := DeriveKey([]byte("operator-passphrase"), []byte("salt-1"))
	k2 := DeriveKey([]byte("operator-passphrase"), []byte("salt-1"))
	k3 := DeriveKey([]byte("operator-passphrase"), []byte("salt-2"))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, KeySize)
}
