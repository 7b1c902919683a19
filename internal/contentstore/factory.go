package contentstore

import (
	"context"
	"fmt"

	"revsite/internal/config"
	"revsite/internal/site"
)

// NewContentStoreFromConfig creates a ContentStore implementation based on the
// content store config type.
func NewContentStoreFromConfig(ctx context.Context, cfg config.ContentStoreConfig) (site.ContentStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "filesystem":
		if cfg.CacheDir == "" {
			return nil, fmt.Errorf("filesystem content store requires cache_dir to be set")
		}
		return NewFileSystemStore(cfg.CacheDir)
	default:
		return nil, fmt.Errorf("unknown content store type: %s", cfg.Type)
	}
}
