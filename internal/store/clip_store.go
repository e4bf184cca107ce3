package store

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tutorloop/voice-service/internal/config"
	"github.com/tutorloop/voice-service/internal/resilience"
)

// ClipStore persists synthesized audio and hands out addressable locators
type ClipStore interface {
	// PutClip uploads a clip and returns a time-limited locator URL
	PutClip(ctx context.Context, data []byte, contentType string) (string, error)

	// Healthy probes the backing store
	Healthy(ctx context.Context) (bool, error)
}

// S3ClipStore stores clips in an S3-compatible bucket and returns presigned
// GET URLs as locators.
type S3ClipStore struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
	retry  *resilience.RetryConfig
}

// NewS3ClipStore creates a clip store backed by the configured bucket.
// The bucket must already exist.
func NewS3ClipStore(cfg *config.Config) (*S3ClipStore, error) {
	client, err := minio.New(cfg.StoreEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StoreAccessKey, cfg.StoreSecretKey, ""),
		Secure: cfg.StoreUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init clip store client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), cfg.StoreBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check clip bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("clip bucket %q does not exist", cfg.StoreBucket)
	}

	return &S3ClipStore{
		client: client,
		bucket: cfg.StoreBucket,
		urlTTL: time.Duration(cfg.StoreURLTTL) * time.Second,
		retry: &resilience.RetryConfig{
			MaxAttempts:    cfg.StoreRetryMaxAttempts,
			InitialBackoff: time.Duration(cfg.StoreRetryInitialBackoff) * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			Multiplier:     2.0,
		},
	}, nil
}

// PutClip uploads a clip under a fresh key and returns a presigned GET URL.
// Uploads are retried with backoff; this is side-channel work, not a core
// voice operation.
func (s *S3ClipStore) PutClip(ctx context.Context, data []byte, contentType string) (string, error) {
	key := clipKey(contentType)

	err := resilience.Retry(ctx, func() error {
		_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType,
		})
		return err
	}, s.retry)
	if err != nil {
		return "", fmt.Errorf("clip upload failed: %w", err)
	}

	locator, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign clip URL: %w", err)
	}

	return locator.String(), nil
}

// Healthy probes the bucket
func (s *S3ClipStore) Healthy(ctx context.Context) (bool, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("clip bucket %q missing", s.bucket)
	}
	return true, nil
}

// clipKey builds an object key with an extension matching the content type
func clipKey(contentType string) string {
	ext := ".bin"
	switch contentType {
	case "audio/mpeg":
		ext = ".mp3"
	case "audio/wav", "audio/x-wav":
		ext = ".wav"
	case "audio/ogg":
		ext = ".ogg"
	}
	return fmt.Sprintf("clips/%s%s", uuid.New().String(), ext)
}
