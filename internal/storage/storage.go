package storage

import (
	"context"

	"github.com/andresuchdata/distroflow/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations snapshot
// exports need.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// New returns the bucket client when an endpoint is configured and a local
// directory store under dataDir otherwise.
func New(ctx context.Context, cfg config.StorageConfig, dataDir string) (ObjectStorage, error) {
	if cfg.Endpoint == "" {
		return NewLocalStorage(dataDir), nil
	}
	return NewMinioClient(ctx, cfg)
}
