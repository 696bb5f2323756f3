//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/target"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/testhelpers"
)

func TestValidator_DryRun(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	v, err := NewValidator(ctx, config.TargetConfig{Dialect: "postgres", DSN: testDB.ConnStr}, zap.NewNop())
	require.NoError(t, err)
	defer v.Close()

	err = v.Validate(ctx, []string{
		`CREATE TABLE "dry_run_orders" ("id" TEXT NOT NULL, CONSTRAINT "pk_dry_run_orders" PRIMARY KEY ("id"))`,
		`CREATE INDEX "ix_dry_run_orders" ON "dry_run_orders" ("id")`,
	})
	require.NoError(t, err)

	var exists bool
	err = testDB.Pool.QueryRow(ctx, `SELECT to_regclass('dry_run_orders') IS NOT NULL`).Scan(&exists)
	require.NoError(t, err)
	assert.False(t, exists, "dry run must not leave tables behind")
}

func TestValidator_ReportsRejectedStatement(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	v, err := NewValidator(ctx, config.TargetConfig{Dialect: "postgres", DSN: testDB.ConnStr}, zap.NewNop())
	require.NoError(t, err)
	defer v.Close()

	err = v.Validate(ctx, []string{
		`CREATE TABLE "dry_run_a" ("id" TEXT NOT NULL)`,
		`CREATE INDEX "ix_missing" ON "no_such_table" ("id")`,
	})
	require.Error(t, err)

	var stmtErr *target.StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, 1, stmtErr.Index)
}
