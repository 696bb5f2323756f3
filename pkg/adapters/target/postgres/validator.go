package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/target"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
)

// Validator dry-runs DDL on PostgreSQL over a single connection.
type Validator struct {
	conn   *pgx.Conn
	logger *zap.Logger
}

var _ target.Validator = (*Validator)(nil)

// NewValidator connects to the target described by cfg.DSN.
func NewValidator(ctx context.Context, cfg config.TargetConfig, logger *zap.Logger) (*Validator, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, &apperrors.ConfigurationError{Field: "target.dsn", Reason: logging.SanitizeError(err)}
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", apperrors.ErrSourceUnavailable,
			logging.SanitizeConnectionString(cfg.DSN), logging.SanitizeError(err))
	}

	return &Validator{conn: conn, logger: logger}, nil
}

func (v *Validator) Validate(ctx context.Context, stmts []string) error {
	tx, err := v.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin dry run: %w", err)
	}
	return target.ExecuteRolledBack(ctx, pgxTx{tx}, stmts, v.logger)
}

func (v *Validator) Close() error {
	return v.conn.Close(context.Background())
}

type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) Exec(ctx context.Context, stmt string) error {
	_, err := t.tx.Exec(ctx, stmt)
	return err
}

func (t pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return err
	}
	return nil
}
