package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// memoryAssessmentRepository keeps assessments for the lifetime of the
// process when no store is configured. Values are stored as JSON so callers
// never share memory with the repository.
type memoryAssessmentRepository struct {
	mu    sync.RWMutex
	items map[string][]byte
	index map[string]models.AssessmentSummary
}

// NewMemoryAssessmentRepository creates an in-process assessment repository.
func NewMemoryAssessmentRepository() AssessmentRepository {
	return &memoryAssessmentRepository{
		items: make(map[string][]byte),
		index: make(map[string]models.AssessmentSummary),
	}
}

func (r *memoryAssessmentRepository) Save(_ context.Context, a *models.Assessment) error {
	if _, err := uuid.Parse(a.ID); err != nil {
		return fmt.Errorf("invalid assessment id %q: %w", a.ID, err)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = payload
	r.index[a.ID] = a.Summary()
	return nil
}

func (r *memoryAssessmentRepository) Get(_ context.Context, id string) (*models.Assessment, error) {
	r.mu.RLock()
	payload, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	var a models.Assessment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
	}
	return &a, nil
}

func (r *memoryAssessmentRepository) List(_ context.Context, limit int) ([]models.AssessmentSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	r.mu.RLock()
	out := make([]models.AssessmentSummary, 0, len(r.index))
	for _, s := range r.index {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryAssessmentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.items, id)
	delete(r.index, id)
	return nil
}

var _ AssessmentRepository = (*memoryAssessmentRepository)(nil)
