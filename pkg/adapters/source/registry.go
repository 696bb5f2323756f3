package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
)

// AdapterInfo describes a registered source adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "mongo", "file"
	DisplayName string `json:"display_name"` // "Cosmos DB (MongoDB API)"
	Description string `json:"description"`
}

// Registration pairs adapter info with its factory.
type Registration struct {
	Info    AdapterInfo
	Factory func(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (SampleSource, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(sourceType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[sourceType]
	return ok
}

// New opens the source adapter selected by cfg.Type.
func New(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (SampleSource, error) {
	registryMu.RLock()
	reg, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported source type: %s (not compiled in): %w", cfg.Type,
			&apperrors.ConfigurationError{Field: "source.type", Reason: "no adapter registered"})
	}
	return reg.Factory(ctx, cfg, logger)
}
