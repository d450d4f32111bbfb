package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"wallfloor-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Client uploads generated reports to Cloudflare R2 (S3-compatible).
type R2Client struct {
	client *s3.Client
	bucket string
}

// NewR2Client builds an R2 client from config. Returns nil when R2 is
// not configured, which callers treat as uploads disabled.
func NewR2Client(cfg *config.Config) *R2Client {
	if cfg.R2.Bucket == "" || cfg.R2.AccessKey == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2.AccessKey,
			cfg.R2.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.R2.Region),
	)
	if err != nil {
		log.Printf("[Storage] Failed to configure R2 client: %v", err)
		return nil
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2.Endpoint)
	})

	return &R2Client{client: client, bucket: cfg.R2.Bucket}
}

// Upload stores an object and returns its key
func (r *R2Client) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}
