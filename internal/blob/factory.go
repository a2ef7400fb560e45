package blob

import (
	"context"
	"fmt"

	"github.com/Niyati251208/sports-performance-analyzer/internal/config"
)

// Open selects a Store implementation from configuration.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch Driver(cfg.Blob.Driver) {
	case DriverFilesystem, "":
		return NewFS(cfg.Blob.Root, cfg.Blob.PublicPrefix), nil
	case DriverMinIO:
		return NewMinio(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Blob.Driver)
	}
}
