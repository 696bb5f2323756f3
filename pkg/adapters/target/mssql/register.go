package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/target"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/ddl"
)

func init() {
	target.Register(target.Registration{
		Dialect:     ddl.SQLServer,
		DisplayName: "Microsoft SQL Server / Azure SQL",
		Factory: func(ctx context.Context, cfg config.TargetConfig, logger *zap.Logger) (target.Validator, error) {
			return NewValidator(ctx, cfg, logger)
		},
	})
}
