// Package storage persists mutation form attachments in S3-compatible
// object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	infraconfig "github.com/mutasi/backend/internal/infrastructure/config"

	"github.com/mutasi/backend/internal/domain/shared"
)

// S3AttachmentStorage stores uploaded files under a date-partitioned,
// collision-free key and returns a public URL. It works with AWS S3 and
// any S3-compatible backend (MinIO, RustFS, Cloudflare R2).
type S3AttachmentStorage struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	maxUploadSize int64
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
}

// Option is a functional option for S3AttachmentStorage
type Option func(*S3AttachmentStorage)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3AttachmentStorage) { s.logger = logger }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *S3AttachmentStorage) { s.now = now }
}

// WithIDGenerator overrides the object-name generator, for tests
func WithIDGenerator(gen func() string) Option {
	return func(s *S3AttachmentStorage) { s.newID = gen }
}

// NewS3AttachmentStorage creates the storage from configuration
func NewS3AttachmentStorage(cfg *infraconfig.StorageConfig, opts ...Option) (*S3AttachmentStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "ap-southeast-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	storage := &S3AttachmentStorage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxUploadSize: cfg.MaxUploadSize,
		logger:        zap.NewNop(),
		now:           time.Now,
		newID:         uuid.NewString,
	}
	if storage.publicBaseURL == "" {
		storage.publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}

// EnsureBucket creates the bucket if it does not exist. Call during
// startup so the first upload cannot fail on a missing bucket.
func (s *S3AttachmentStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores the file and returns its public URL. The original file
// name only contributes its extension; the stored name is random so
// concurrent submissions can never collide.
func (s *S3AttachmentStorage) Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	if s.maxUploadSize > 0 && int64(len(data)) > s.maxUploadSize {
		return "", shared.NewValidationError(
			fmt.Sprintf("file exceeds the %d byte upload limit", s.maxUploadSize))
	}

	key := s.objectKey(filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", shared.NewNetworkError(fmt.Sprintf("failed to upload attachment: %v", err))
	}

	s.logger.Info("attachment stored",
		zap.String("key", key),
		zap.Int("size", len(data)))
	return s.publicBaseURL + "/" + key, nil
}

// objectKey builds {yyyymmdd}/{uuid}{ext}
func (s *S3AttachmentStorage) objectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return s.now().Format("20060102") + "/" + s.newID() + ext
}
