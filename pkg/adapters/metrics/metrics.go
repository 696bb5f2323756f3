package metrics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// Provider supplies aggregated throughput metrics per container.
type Provider interface {
	// ContainerMetrics returns nil metrics and a nil error when the
	// provider has nothing for container.
	ContainerMetrics(ctx context.Context, container string) (*models.PerformanceMetrics, error)
}

// New builds the provider selected by cfg.Type. Type "none" yields a nil
// Provider, which callers treat as "no metrics supplied".
func New(ctx context.Context, cfg config.MetricsConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "static":
		return LoadStatic(cfg.File, logger)
	case "datadog":
		return NewDatadog(ctx, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown metrics type %q: %w", cfg.Type,
			&apperrors.ConfigurationError{Field: "metrics.type", Reason: "expected none, static or datadog"})
	}
}
