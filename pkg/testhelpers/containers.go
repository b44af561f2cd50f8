package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/incident-atlas/pkg/database"
)

// PostgresTestImage is the PostgreSQL image used for integration tests.
const PostgresTestImage = "postgres:16-alpine"

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "incidents_test",
			"POSTGRES_USER":     "atlas",
			"POSTGRES_PASSWORD": "test_password",
		},
		// Postgres logs readiness twice: once for the init server, once for the real one.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://atlas:test_password@%s:%s/incidents_test?sslmode=disable",
		host, port.Port())

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}, nil
}

// IncidentDB holds a connection to a database with the incident schema applied.
// Use this for testing repositories and services against a real database.
type IncidentDB struct {
	DB      *database.DB
	ConnStr string
}

var (
	sharedIncidentDB     *IncidentDB
	sharedIncidentDBOnce sync.Once
	sharedIncidentDBErr  error
)

// GetIncidentDB returns a shared migrated database for integration tests.
// Tests that write should call ResetIncidentTables first.
func GetIncidentDB(t *testing.T) *IncidentDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	testDB := GetTestDB(t)

	sharedIncidentDBOnce.Do(func() {
		sharedIncidentDB, sharedIncidentDBErr = setupIncidentDB(testDB)
	})

	if sharedIncidentDBErr != nil {
		t.Fatalf("Failed to setup incident database: %v", sharedIncidentDBErr)
	}

	return sharedIncidentDB
}

func setupIncidentDB(testDB *TestDB) (*IncidentDB, error) {
	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            testDB.ConnStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to incident database: %w", err)
	}

	if err := database.MigrateURL(testDB.ConnStr, zap.NewNop()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &IncidentDB{
		DB:      db,
		ConnStr: testDB.ConnStr,
	}, nil
}

// ResetIncidentTables empties every incident table and the run history.
func ResetIncidentTables(t *testing.T, db *IncidentDB) {
	t.Helper()

	_, err := db.DB.Exec(context.Background(),
		"TRUNCATE incidents, regions, groups, attack_types, targets, weapon_types, load_runs")
	if err != nil {
		t.Fatalf("Failed to reset incident tables: %v", err)
	}
}
