package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// S3StatementStorage archives payout statements in S3-compatible object
// storage (AWS S3, Cloudflare R2, MinIO).
type S3StatementStorage struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucketName string
}

var _ StatementArchiver = (*S3StatementStorage)(nil)

// NewS3StatementStorage builds the archive client. An empty endpoint uses
// the AWS default for the region.
func NewS3StatementStorage(cfg config.StatementArchiveConfig) (*S3StatementStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("statement archive bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := s3.Options{
		Region:                     region,
		Credentials:                credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	client := s3.New(opts)

	return &S3StatementStorage{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucketName: cfg.Bucket,
	}, nil
}

// validateKey rejects storage keys containing path traversal segments.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty storage key")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return fmt.Errorf("path traversal detected in storage key")
		}
	}
	return nil
}

// Save uploads a statement.
func (s *S3StatementStorage) Save(ctx context.Context, key string, reader io.Reader, size int64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucketName,
		Key:           &key,
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(xlsxContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object failed: %w", err)
	}
	return nil
}

// URL returns a presigned download URL for an archived statement.
func (s *S3StatementStorage) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucketName,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign failed: %w", err)
	}
	return result.URL, nil
}
