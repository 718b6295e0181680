// Package s3 implements the media store against any S3-compatible
// object storage (AWS S3, MinIO).
package s3

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	appconfig "chiyabari/internal/config"
	"chiyabari/internal/media"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// New builds an S3 client from the media configuration. A non-empty
// Endpoint points the client at a MinIO-style deployment.
func New(ctx context.Context, cfg appconfig.MediaConfig) (*Store, error) {
	const op = "media.s3.New"

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// objectKey spreads uploads across date-based prefixes.
func objectKey(localPath string) string {
	d := time.Now()
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s%s",
		d.Year(), d.Month(), d.Day(), uuid.New(), filepath.Ext(localPath))
}

// Upload stores the file at localPath and returns its public URL and key.
func (s *Store) Upload(ctx context.Context, localPath string) (*media.Asset, error) {
	const op = "media.s3.Upload"

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, media.ErrUploadFailed, err)
	}
	defer f.Close()

	key := objectKey(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &media.Asset{
		URL: s.publicBaseURL + "/" + key,
		ID:  key,
	}, nil
}

// Delete removes the object with the given key.
func (s *Store) Delete(ctx context.Context, assetID string) error {
	const op = "media.s3.Delete"

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(assetID),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
