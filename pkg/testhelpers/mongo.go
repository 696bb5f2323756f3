package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MongoImage speaks the wire protocol exposed by the Cosmos DB Mongo API.
const MongoImage = "mongo:7"

// TestMongo holds a shared MongoDB container.
type TestMongo struct {
	Container testcontainers.Container
	URI       string
}

var (
	sharedTestMongo     *TestMongo
	sharedTestMongoOnce sync.Once
	sharedTestMongoErr  error
)

// GetTestMongo returns a shared MongoDB container for sample source tests.
func GetTestMongo(t *testing.T) *TestMongo {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestMongoOnce.Do(func() {
		sharedTestMongo, sharedTestMongoErr = setupTestMongo()
	})

	if sharedTestMongoErr != nil {
		t.Fatalf("Failed to setup test MongoDB: %v", sharedTestMongoErr)
	}

	return sharedTestMongo
}

func setupTestMongo() (*TestMongo, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        MongoImage,
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForLog("Waiting for connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start mongo container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &TestMongo{
		Container: container,
		URI:       fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
	}, nil
}
