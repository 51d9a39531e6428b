package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/spec-kit/fieldwork-service/internal/config"
)

// PhotoStore uploads progress photos to S3-compatible object storage and
// returns publicly resolvable URLs. The core only ever stores the URL
// strings.
type PhotoStore struct {
	client *s3.Client
	bucket string
	public string
}

// NewPhotoStore builds the store from configuration. MinIO works through
// the custom endpoint.
func NewPhotoStore(ctx context.Context, cfg config.StorageConfig) (*PhotoStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	public := strings.TrimRight(cfg.PublicBaseURL, "/")
	if public == "" {
		public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &PhotoStore{client: client, bucket: cfg.Bucket, public: public}, nil
}

// Upload stores the photo under a date-partitioned random key and returns
// its public URL.
func (p *PhotoStore) Upload(ctx context.Context, ticketID string, data []byte, contentType string) (string, error) {
	key := photoKey(ticketID)
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	return p.public + "/" + key, nil
}

func photoKey(ticketID string) string {
	d := time.Now()
	return fmt.Sprintf("tickets/%s/%d/%02d/%02d/%s", ticketID, d.Year(), d.Month(), d.Day(), uuid.NewString())
}
