package source

import (
	"context"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// SampleSource yields bounded document samples from a document store.
// Each implementation owns its connection and must be closed when done.
type SampleSource interface {
	// FetchSample returns at most maxCount documents of container.
	// A container with no documents yields an empty slice and no error.
	FetchSample(ctx context.Context, container string, maxCount int) ([]models.SampledDocument, error)

	// ListContainers discovers the containers the source holds, with
	// whatever metadata the store exposes.
	ListContainers(ctx context.Context) ([]models.ContainerMetadata, error)

	// Close releases the underlying connection.
	Close() error
}
