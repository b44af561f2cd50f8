package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/incident-atlas/pkg/config"
	"github.com/ekaya-inc/incident-atlas/pkg/graph"
)

// Neo4jTestImage is the Neo4j image used for graph projection tests.
const Neo4jTestImage = "neo4j:5-community"

const neo4jTestPassword = "test_password"

var (
	sharedNeo4j     *graph.Client
	sharedNeo4jOnce sync.Once
	sharedNeo4jErr  error
)

// GetNeo4jClient returns a client for a shared Neo4j container.
func GetNeo4jClient(t *testing.T) *graph.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedNeo4jOnce.Do(func() {
		sharedNeo4j, sharedNeo4jErr = setupNeo4j()
	})

	if sharedNeo4jErr != nil {
		t.Fatalf("Failed to setup neo4j: %v", sharedNeo4jErr)
	}

	return sharedNeo4j
}

func setupNeo4j() (*graph.Client, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        Neo4jTestImage,
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/" + neo4jTestPassword,
		},
		WaitingFor: wait.ForLog("Started.").WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "7687")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return graph.NewClient(ctx, &config.Neo4jConfig{
		URI:      fmt.Sprintf("neo4j://%s:%s", host, port.Port()),
		User:     "neo4j",
		Password: neo4jTestPassword,
	})
}
