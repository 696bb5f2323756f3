package metrics

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// StaticFile is the YAML layout of a static metrics file.
type StaticFile struct {
	Containers map[string]models.PerformanceMetrics `yaml:"containers"`
}

// Static serves metrics read once from a file.
type Static struct {
	metrics map[string]models.PerformanceMetrics
	logger  *zap.Logger
}

var _ Provider = (*Static)(nil)

// LoadStatic reads a static metrics file.
func LoadStatic(path string, logger *zap.Logger) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics file %s: %w", path, err)
	}
	return ParseStatic(data, logger)
}

// ParseStatic decodes static metrics YAML. Rates must lie in [0,1] and
// counts must not be negative.
func ParseStatic(data []byte, logger *zap.Logger) (*Static, error) {
	var file StaticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse metrics file: %w", err)
	}
	for name, m := range file.Containers {
		if m.ThrottledRate < 0 || m.ThrottledRate > 1 {
			return nil, &apperrors.ConfigurationError{Field: "metrics." + name + ".throttled_rate", Reason: "must be between 0 and 1"}
		}
		if m.AvgRUPerSecond < 0 || m.PeakRUPerSecond < 0 || m.AvgLatencyMillis < 0 || m.TotalRequests < 0 {
			return nil, &apperrors.ConfigurationError{Field: "metrics." + name, Reason: "values must not be negative"}
		}
	}
	if file.Containers == nil {
		file.Containers = map[string]models.PerformanceMetrics{}
	}
	return &Static{
		metrics: file.Containers,
		logger:  logger.Named("metrics.static"),
	}, nil
}

func (s *Static) ContainerMetrics(ctx context.Context, container string) (*models.PerformanceMetrics, error) {
	m, ok := s.metrics[container]
	if !ok {
		s.logger.Debug("No static metrics for container", zap.String("container", container))
		return nil, nil
	}
	return &m, nil
}
