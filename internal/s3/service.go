package s3

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kewsys/registry/internal/config"
	ierr "github.com/kewsys/registry/internal/errors"
)

const (
	defaultPresignExpiryDuration = 30 * time.Minute
)

// Service archives exported reports
type Service interface {
	// UploadDocument stores document and returns its object key
	UploadDocument(ctx context.Context, document *Document) (string, error)
	GetPresignedUrl(ctx context.Context, key string) (string, error)
}

type s3ServiceImpl struct {
	client *s3.Client
	config *config.S3Config
}

// NewService returns nil when archiving is disabled
func NewService(cfg *config.Configuration) (Service, error) {
	if !cfg.S3.Enabled {
		return nil, nil
	}

	awsCfg, err := config.LoadAwsConfig(context.Background(), cfg.S3)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("failed to load aws config").
			Mark(ierr.ErrHTTPClient)
	}

	return &s3ServiceImpl{
		config: &cfg.S3,
		client: s3.NewFromConfig(awsCfg),
	}, nil
}

// GetPresignedUrl implements Service.
func (s *s3ServiceImpl) GetPresignedUrl(ctx context.Context, key string) (string, error) {
	duration := s.config.PresignExpiry
	if duration <= 0 {
		duration = defaultPresignExpiryDuration
	}

	presigner := s3.NewPresignClient(s.client)
	result, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(duration))
	if err != nil {
		return "", ierr.WithError(err).WithHint("failed to get presigned url").
			WithMessage("bucket:" + s.config.Bucket + ", key:" + key).
			Mark(ierr.ErrHTTPClient)
	}

	return result.URL, nil
}

// UploadDocument implements Service.
func (s *s3ServiceImpl) UploadDocument(ctx context.Context, document *Document) (string, error) {
	key := document.Key(s.config.KeyPrefix)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(document.Data),
		ContentType: aws.String(document.ContentType),
	})
	if err != nil {
		return "", ierr.WithError(err).WithHint("failed to upload document").
			WithMessage("bucket:" + s.config.Bucket + ", key:" + key).
			Mark(ierr.ErrHTTPClient)
	}

	return key, nil
}
