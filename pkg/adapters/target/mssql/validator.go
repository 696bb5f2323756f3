package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/target"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
)

// Validator dry-runs DDL on SQL Server, where schema changes are
// transactional.
type Validator struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ target.Validator = (*Validator)(nil)

// NewValidator opens and pings the target. DSNs carrying fedauth use the
// azuresql driver for Azure AD authentication.
func NewValidator(ctx context.Context, cfg config.TargetConfig, logger *zap.Logger) (*Validator, error) {
	db, err := sql.Open(driverFor(cfg.DSN), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open SQL Server connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", apperrors.ErrSourceUnavailable,
			logging.SanitizeConnectionString(cfg.DSN), logging.SanitizeError(err))
	}

	return &Validator{db: db, logger: logger}, nil
}

func (v *Validator) Validate(ctx context.Context, stmts []string) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dry run: %w", err)
	}
	return target.ExecuteRolledBack(ctx, sqlTx{tx}, stmts, v.logger)
}

func (v *Validator) Close() error {
	return v.db.Close()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Exec(ctx context.Context, stmt string) error {
	_, err := t.tx.ExecContext(ctx, stmt)
	return err
}

func (t sqlTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}
