package store

import (
	"context"
	"fmt"

	"jobflow/internal/config"
)

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.Path), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "redis":
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
	case "s3":
		return NewS3StoreFromEnv(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Key)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
