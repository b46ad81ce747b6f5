package backup

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskan/profilevault/internal/models"
)

type fakeObjectAPI struct {
	objects map[string][]byte
	puts    []string
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = body
	f.puts = append(f.puts, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, io.EOF
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func newTestStore() (*Store, *fakeObjectAPI) {
	api := &fakeObjectAPI{objects: map[string][]byte{}}
	return &Store{
		client: api,
		bucket: "profile-snapshots",
		now:    func() time.Time { return time.Unix(1700000000, 0) },
	}, api
}

func TestExportFetchRoundTrip(t *testing.T) {
	store, api := newTestStore()

	blob := &models.EncryptedBlob{
		ProfileHash:   "hash1",
		EncryptedData: []byte{0xDE, 0xAD, 0xBE, 0xEF},
		IV:            []byte{0x01, 0x02},
		Tag:           []byte{0x03, 0x04},
		KeyVersion:    1,
		Algorithm:     "aes-256-gcm",
	}

	key, err := store.Export(context.Background(), blob)
	require.NoError(t, err)
	assert.Equal(t, "profiles/hash1/1700000000.json", key)
	require.Len(t, api.puts, 1)

	got, err := store.Fetch(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, blob.ProfileHash, got.ProfileHash)
	assert.Equal(t, blob.EncryptedData, got.EncryptedData)
	assert.Equal(t, blob.IV, got.IV)
	assert.Equal(t, blob.Tag, got.Tag)
	assert.Equal(t, blob.KeyVersion, got.KeyVersion)
}

func TestExportStoresNoPlaintextFields(t *testing.T) {
	store, api := newTestStore()

	blob := &models.EncryptedBlob{ProfileHash: "hash1", EncryptedData: []byte("ciphertext-bytes")}
	key, err := store.Export(context.Background(), blob)
	require.NoError(t, err)

	stored := string(api.objects[key])
	assert.Contains(t, stored, "encrypted_data")
	assert.NotContains(t, stored, "profile_text")
}

func TestFetchMissing(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.Fetch(context.Background(), "profiles/none/0.json")
	assert.Error(t, err)
}
