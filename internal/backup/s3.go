// Package backup stores ciphertext-only snapshots of encrypted profile
// blobs in S3-compatible object storage. Plaintext never reaches this
// package: snapshots are taken before a key-rotation pass and fetched back
// for profile recovery.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/avoskan/profilevault/internal/config"
	"github.com/avoskan/profilevault/internal/models"
)

// Seams for tests, following the project's pattern for AWS wiring.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectAPI is the subset of the S3 client used by the store.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store writes and reads encrypted blob snapshots.
type Store struct {
	client objectAPI
	bucket string
	now    func() time.Time
}

// New builds a Store from the process configuration, using static
// credentials and an optional custom endpoint (MinIO in development).
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.S3Bucket, now: time.Now}, nil
}

// snapshot is the stored JSON shape; byte fields serialize as base64.
type snapshot struct {
	ProfileHash   string    `json:"profile_hash"`
	EncryptedData []byte    `json:"encrypted_data"`
	IV            []byte    `json:"iv"`
	Tag           []byte    `json:"tag"`
	KeyVersion    int       `json:"key_version"`
	Algorithm     string    `json:"algorithm"`
	TakenAt       time.Time `json:"taken_at"`
}

// Export uploads the blob under profiles/<hash>/<unix>.json and returns the
// object key.
func (s *Store) Export(ctx context.Context, blob *models.EncryptedBlob) (string, error) {
	body, err := json.Marshal(snapshot{
		ProfileHash:   blob.ProfileHash,
		EncryptedData: blob.EncryptedData,
		IV:            blob.IV,
		Tag:           blob.Tag,
		KeyVersion:    blob.KeyVersion,
		Algorithm:     blob.Algorithm,
		TakenAt:       s.now().UTC(),
	})
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("profiles/%s/%d.json", blob.ProfileHash, s.now().Unix())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return "", fmt.Errorf("snapshot upload failed: %w", err)
	}

	return key, nil
}

// Fetch retrieves the snapshot stored under key.
func (s *Store) Fetch(ctx context.Context, key string) (*models.EncryptedBlob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch failed: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("snapshot decode failed: %w", err)
	}

	return &models.EncryptedBlob{
		ProfileHash:   snap.ProfileHash,
		EncryptedData: snap.EncryptedData,
		IV:            snap.IV,
		Tag:           snap.Tag,
		KeyVersion:    snap.KeyVersion,
		Algorithm:     snap.Algorithm,
		UpdatedAt:     snap.TakenAt,
	}, nil
}
