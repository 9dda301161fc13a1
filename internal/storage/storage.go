package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyjsx/inkwell/internal/config"
)

var ErrNotFound = errors.New("object not found")

// Storage is a flat key/value blob store. Delete of a missing key is not an
// error.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Open builds the backend selected by cfg and the base URL its objects are
// served from.
func Open(ctx context.Context, cfg *config.Config) (Storage, string, error) {
	switch cfg.StorageDriver {
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, "", errors.New("S3_BUCKET is required for the s3 storage driver")
		}
		client, err := NewS3Client(ctx, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			return nil, "", err
		}
		baseURL := cfg.AssetBaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.AWSRegion)
		}
		return NewS3Storage(client, cfg.S3Bucket), baseURL, nil
	case "local":
		local, err := NewLocalStorage(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		baseURL := cfg.AssetBaseURL
		if baseURL == "" {
			baseURL = "/uploads"
		}
		return local, baseURL, nil
	}
	return nil, "", fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
