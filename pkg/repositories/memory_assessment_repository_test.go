package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

func memoryAssessment(createdAt time.Time) *models.Assessment {
	return &models.Assessment{
		ID:                  uuid.NewString(),
		CreatedAt:           createdAt,
		Containers:          []models.ContainerAssessment{{Container: "orders", Status: models.StatusCompleted}},
		OverallQualityScore: 92,
		ReadyForMigration:   true,
		Complexity:          models.MigrationComplexity{OverallComplexity: models.ComplexityLow},
	}
}

func TestMemoryAssessmentRepository_RoundTrip(t *testing.T) {
	repo := NewMemoryAssessmentRepository()
	ctx := context.Background()
	a := memoryAssessment(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	require.NoError(t, repo.Save(ctx, a))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "orders", got.Containers[0].Container)

	got.Containers[0].Container = "mutated"
	again, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "orders", again.Containers[0].Container, "callers get copies")
}

func TestMemoryAssessmentRepository_List(t *testing.T) {
	repo := NewMemoryAssessmentRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		a := memoryAssessment(base.Add(time.Duration(i) * time.Hour))
		ids = append(ids, a.ID)
		require.NoError(t, repo.Save(ctx, a))
	}

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)
	assert.Equal(t, 1, list[0].ContainerCount)
	assert.Equal(t, models.ComplexityLow, list[0].Complexity)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryAssessmentRepository_NotFound(t *testing.T) {
	repo := NewMemoryAssessmentRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, uuid.NewString()), apperrors.ErrNotFound)
	assert.Error(t, repo.Save(ctx, &models.Assessment{ID: "nope"}))
}

func TestMemoryAssessmentRepository_Delete(t *testing.T) {
	repo := NewMemoryAssessmentRepository()
	ctx := context.Background()
	a := memoryAssessment(time.Now())
	require.NoError(t, repo.Save(ctx, a))

	require.NoError(t, repo.Delete(ctx, a.ID))
	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
