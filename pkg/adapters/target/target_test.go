package target

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/ddl"
)

type fakeTx struct {
	executed    []string
	failOn      string
	rolledBack  bool
	rollbackErr error
}

func (f *fakeTx) Exec(_ context.Context, stmt string) error {
	if stmt == f.failOn {
		return errors.New("syntax error near FOO")
	}
	f.executed = append(f.executed, stmt)
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return f.rollbackErr
}

func TestExecuteRolledBack_AllStatements(t *testing.T) {
	tx := &fakeTx{}
	stmts := []string{"CREATE TABLE a (x INT)", "CREATE INDEX ix_a ON a (x)"}

	err := ExecuteRolledBack(context.Background(), tx, stmts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, stmts, tx.executed)
	assert.True(t, tx.rolledBack)
}

func TestExecuteRolledBack_ReportsFirstFailure(t *testing.T) {
	tx := &fakeTx{failOn: "CREATE FOO"}
	stmts := []string{"CREATE TABLE a (x INT)", "CREATE FOO", "CREATE TABLE b (y INT)"}

	err := ExecuteRolledBack(context.Background(), tx, stmts, zap.NewNop())
	require.Error(t, err)

	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, 1, stmtErr.Index)
	assert.Equal(t, "CREATE FOO", stmtErr.Statement)
	assert.Contains(t, err.Error(), "statement 2 rejected")
	assert.True(t, IsRejected(err))
	assert.Len(t, tx.executed, 1, "execution stops at the failure")
	assert.True(t, tx.rolledBack)
}

func TestExecuteRolledBack_RejectsStackedStatement(t *testing.T) {
	tx := &fakeTx{}
	err := ExecuteRolledBack(context.Background(), tx, []string{"CREATE TABLE a (x INT); DROP TABLE b"}, zap.NewNop())

	assert.ErrorIs(t, err, ddl.ErrMultipleStatements)
	assert.Empty(t, tx.executed)
	assert.True(t, tx.rolledBack)
}

func TestExecuteRolledBack_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx := &fakeTx{}

	err := ExecuteRolledBack(ctx, tx, []string{"CREATE TABLE a (x INT)"}, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRejected(err))
	assert.True(t, tx.rolledBack, "rollback still runs after cancellation")
}

func TestExecuteRolledBack_RollbackFailure(t *testing.T) {
	tx := &fakeTx{rollbackErr: errors.New("connection reset")}

	err := ExecuteRolledBack(context.Background(), tx, []string{"CREATE TABLE a (x INT)"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roll back dry run")
}

type nopValidator struct{}

func (nopValidator) Validate(context.Context, []string) error { return nil }
func (nopValidator) Close() error { return nil }

func TestNew(t *testing.T) {
	Register(Registration{
		Dialect:     ddl.Postgres,
		DisplayName: "test",
		Factory: func(context.Context, config.TargetConfig, *zap.Logger) (Validator, error) {
			return nopValidator{}, nil
		},
	})

	v, err := New(context.Background(), config.TargetConfig{Dialect: "pg", DSN: "postgres://x"}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Contains(t, RegisteredDialects(), ddl.Postgres)

	_, err = New(context.Background(), config.TargetConfig{Dialect: "postgres"}, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	_, err = New(context.Background(), config.TargetConfig{Dialect: "oracle", DSN: "x"}, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)
}
