package file

import (
	"context"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "file",
			DisplayName: "Sample files",
			Description: "Read exported documents from <container>.ndjson or <container>.json files",
		},
		Factory: func(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (source.SampleSource, error) {
			return NewSource(cfg, logger)
		},
	})
}
