package archive

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Provider names the upload backend selected by configuration.
type Provider string

const (
	ProviderLocal Provider = "local"
	ProviderS3    Provider = "s3"
	ProviderGCS   Provider = "gcs"
	ProviderAzure Provider = "azure"
)

// Config gathers the per-provider configuration groups; only the group
// matching Provider is consulted.
type Config struct {
	Provider Provider
	Local    LocalConfig
	S3       S3Config
	GCS      GCSConfig
	Azure    AzureConfig
}

// New selects and constructs the Adapter named by cfg.Provider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Adapter, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocal(cfg.Local, logger)
	case ProviderS3:
		return NewS3(ctx, cfg.S3)
	case ProviderGCS:
		return NewGCS(ctx, cfg.GCS)
	case ProviderAzure:
		return NewAzure(ctx, cfg.Azure)
	default:
		return nil, fmt.Errorf("archive: unsupported upload provider %q", cfg.Provider)
	}
}
