package target

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/ddl"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
)

// Validator executes generated DDL against a live target without keeping
// any of it.
type Validator interface {
	// Validate runs stmts in order inside one transaction that is always
	// rolled back. The first failing statement is returned as a
	// *StatementError.
	Validate(ctx context.Context, stmts []string) error
	Close() error
}

// Tx is the part of a driver transaction a dry run needs.
type Tx interface {
	Exec(ctx context.Context, stmt string) error
	Rollback(ctx context.Context) error
}

// StatementError reports the statement the target rejected.
type StatementError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d rejected by target: %v", e.Index+1, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// ExecuteRolledBack runs stmts on tx and rolls back whatever happened.
func ExecuteRolledBack(ctx context.Context, tx Tx, stmts []string, logger *zap.Logger) (err error) {
	defer func() {
		// The rollback uses a fresh context so a cancelled run still cleans up.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Warn("Failed to roll back dry run", zap.Error(rbErr))
			if err == nil {
				err = fmt.Errorf("roll back dry run: %w", rbErr)
			}
		}
	}()

	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("dry run cancelled: %w", err)
		}
		if err := ddl.ValidateStatement(stmt); err != nil {
			return &StatementError{Index: i, Statement: stmt, Err: err}
		}
		if err := tx.Exec(ctx, stmt); err != nil {
			logger.Info("Target rejected statement",
				zap.Int("index", i),
				zap.String("statement", logging.SanitizeStatement(stmt)),
				zap.Error(err))
			return &StatementError{Index: i, Statement: stmt, Err: err}
		}
	}

	logger.Info("Dry run succeeded", zap.Int("statements", len(stmts)))
	return nil
}

// IsRejected reports whether err came from the target refusing a statement
// rather than from connectivity.
func IsRejected(err error) bool {
	var stmtErr *StatementError
	return errors.As(err, &stmtErr)
}
