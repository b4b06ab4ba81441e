package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/storage"
	"github.com/angelmondragon/medrec-backend/pkg/storage/fs"
	"github.com/angelmondragon/medrec-backend/pkg/storage/gcs"
	"github.com/angelmondragon/medrec-backend/pkg/storage/s3"
)

// MediaPath is the route prefix the API serves fs-backed objects from.
const MediaPath = "/media"

// New opens the storage backend selected by configuration.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.Store, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	var (
		store storage.Store
		err   error
	)
	switch name {
	case config.StorageDriverFS:
		store, err = fs.New(cfg.Storage.FSRoot, publicBaseURL(cfg))
	case config.StorageDriverGCS:
		store, err = gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	case config.StorageDriverS3:
		store, err = s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", name, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", store.Driver()), "storage backend ready")
	}
	return store, nil
}

func publicBaseURL(cfg *config.Config) string {
	if cfg.Storage.PublicBaseURL != "" {
		return cfg.Storage.PublicBaseURL
	}
	return strings.TrimRight(cfg.App.PublicBaseURL, "/") + MediaPath
}
