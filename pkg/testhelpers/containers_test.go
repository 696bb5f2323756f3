//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestStoreDB_MigrationsApplied(t *testing.T) {
	store := GetStoreDB(t)

	ctx := context.Background()

	var exists bool
	err := store.DB.Pool.QueryRow(ctx,
		"SELECT to_regclass('public.assessments') IS NOT NULL").
		Scan(&exists)
	if err != nil {
		t.Fatalf("failed to look up assessments table: %v", err)
	}

	if !exists {
		t.Error("expected assessments table after migrations")
	}
}

func TestTestMongo_URI(t *testing.T) {
	m := GetTestMongo(t)

	if m.URI == "" {
		t.Error("expected a connection URI")
	}
}
