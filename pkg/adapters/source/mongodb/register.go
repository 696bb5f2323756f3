package mongodb

import (
	"context"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "mongo",
			DisplayName: "Cosmos DB (MongoDB API)",
			Description: "Sample collections of a MongoDB or Cosmos DB for MongoDB database",
		},
		Factory: func(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (source.SampleSource, error) {
			return NewSource(ctx, cfg, logger)
		},
	})
}
