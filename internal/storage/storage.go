// Package storage keeps uploaded recipe images on local disk, S3 or MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodgram/foodgram/backend/config"
)

// ErrNotFound is returned when a media object does not exist
var ErrNotFound = errors.New("media object not found")

// Storage persists media objects under opaque keys
type Storage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns the address clients use to fetch key
	URL(key string) string
}

// New builds the backend selected by cfg.Backend
func New(ctx context.Context, cfg config.MediaConfig) (Storage, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalStorage(cfg.Root, cfg.BaseURL)
	case "s3":
		return NewS3Storage(ctx, cfg.Region, cfg.Bucket)
	case "minio":
		return NewMinioStorage(ctx, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}
