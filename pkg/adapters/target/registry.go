package target

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/ddl"
)

// Registration binds a dialect to the validator that speaks it.
type Registration struct {
	Dialect     ddl.Dialect
	DisplayName string
	Factory     func(ctx context.Context, cfg config.TargetConfig, logger *zap.Logger) (Validator, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[ddl.Dialect]Registration)
)

// Register is called by each validator's init() function.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Dialect] = reg
}

// RegisteredDialects returns every dialect with a validator, sorted.
func RegisteredDialects() []ddl.Dialect {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]ddl.Dialect, 0, len(registry))
	for d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New connects a validator for cfg.Dialect.
func New(ctx context.Context, cfg config.TargetConfig, logger *zap.Logger) (Validator, error) {
	d, err := ddl.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, &apperrors.ConfigurationError{Field: "target.dsn", Reason: "required for dry-run validation"}
	}

	registryMu.RLock()
	reg, ok := registry[d]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no validator registered for %s", apperrors.ErrUnsupportedDialect, d)
	}
	return reg.Factory(ctx, cfg, logger.Named("target").With(zap.String("dialect", string(d))))
}
