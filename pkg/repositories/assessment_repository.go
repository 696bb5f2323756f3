package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/database"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// DefaultListLimit bounds List when the caller passes no limit.
const DefaultListLimit = 20

// AssessmentRepository stores finished assessments.
type AssessmentRepository interface {
	Save(ctx context.Context, a *models.Assessment) error
	Get(ctx context.Context, id string) (*models.Assessment, error)
	List(ctx context.Context, limit int) ([]models.AssessmentSummary, error)
	Delete(ctx context.Context, id string) error
}

// assessmentRepository implements AssessmentRepository using PostgreSQL.
// The whole assessment lives in payload; the other columns serve listings.
type assessmentRepository struct {
	db *database.DB
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *database.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

// Save inserts an assessment or replaces the stored one with the same ID.
func (r *assessmentRepository) Save(ctx context.Context, a *models.Assessment) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("invalid assessment id %q: %w", a.ID, err)
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	query := `
		INSERT INTO assessments (id, created_at, container_count, quality_score, ready, complexity, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET created_at = EXCLUDED.created_at,
		    container_count = EXCLUDED.container_count,
		    quality_score = EXCLUDED.quality_score,
		    ready = EXCLUDED.ready,
		    complexity = EXCLUDED.complexity,
		    payload = EXCLUDED.payload`

	_, err = r.db.Exec(ctx, query,
		id,
		a.CreatedAt,
		len(a.Containers),
		a.OverallQualityScore,
		a.ReadyForMigration,
		string(a.Complexity.OverallComplexity),
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	return nil
}

// Get retrieves an assessment by ID.
func (r *assessmentRepository) Get(ctx context.Context, id string) (*models.Assessment, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = r.db.QueryRow(ctx, `SELECT payload FROM assessments WHERE id = $1`, uid).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	var a models.Assessment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
	}
	return &a, nil
}

// List returns the newest assessments first.
func (r *assessmentRepository) List(ctx context.Context, limit int) ([]models.AssessmentSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, created_at, container_count, quality_score, ready, complexity
		FROM assessments
		ORDER BY created_at DESC, id
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.AssessmentSummary, 0)
	for rows.Next() {
		var s models.AssessmentSummary
		var id uuid.UUID
		var complexity string
		if err := rows.Scan(&id, &s.CreatedAt, &s.ContainerCount, &s.OverallQualityScore, &s.ReadyForMigration, &complexity); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		s.ID = id.String()
		s.Complexity = models.ComplexityLevel(complexity)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assessments: %w", err)
	}

	return summaries, nil
}

// Delete removes an assessment by ID.
func (r *assessmentRepository) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// parseID treats a malformed id as one that cannot exist.
func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: assessment id %q", apperrors.ErrNotFound, id)
	}
	return uid, nil
}

// Ensure assessmentRepository implements AssessmentRepository at compile time.
var _ AssessmentRepository = (*assessmentRepository)(nil)
