// Package testutil gives integration tests a disposable PostgreSQL database
// with the arena schema applied.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

const (
	postgresImage = "postgres:16-alpine"
	adminDatabase = "arena_test"
)

// server is the PostgreSQL container shared by every test in the binary.
// Tests never touch adminDatabase directly; each gets a database of its own.
var server struct {
	once sync.Once
	cfg  config.DatabaseConfig
	err  error
}

// startServer launches the shared container on first use. The container is
// reaped by testcontainers when the test binary exits.
func startServer() (config.DatabaseConfig, error) {
	server.once.Do(func() {
		ctx := context.Background()
		start := time.Now()
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        postgresImage,
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "arena",
					"POSTGRES_PASSWORD": "arena",
					"POSTGRES_DB":       adminDatabase,
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			server.err = fmt.Errorf("starting postgres container: %w [%s]", err, time.Since(start))
			return
		}
		host, err := c.Host(ctx)
		if err != nil {
			server.err = fmt.Errorf("getting container host: %w", err)
			return
		}
		port, err := c.MappedPort(ctx, "5432")
		if err != nil {
			server.err = fmt.Errorf("getting mapped port: %w", err)
			return
		}
		server.cfg = config.DatabaseConfig{
			Enabled:         true,
			Host:            host,
			Port:            port.Int(),
			User:            "arena",
			Password:        "arena",
			Name:            adminDatabase,
			SSLMode:         "disable",
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: 5 * time.Minute,
		}
	})
	return server.cfg, server.err
}

// NewDatabase creates an empty database for t on the shared server and drops
// it when t finishes. It skips the test under -short.
//
// Precondition: Docker must be available.
// Postcondition: the returned config points at a database only t uses.
func NewDatabase(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in -short mode")
	}
	admin, err := startServer()
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	adminPool, err := postgres.NewPool(ctx, admin, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("connecting to admin database: %v", err)
	}
	t.Cleanup(adminPool.Close)

	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := adminPool.DB().Exec(ctx, "CREATE DATABASE "+name); err != nil {
		t.Fatalf("creating database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if _, err := adminPool.DB().Exec(ctx, "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)"); err != nil {
			t.Logf("dropping database %s: %v", name, err)
		}
	})

	cfg := admin
	cfg.Name = name
	return cfg
}

// NewMigratedPool returns a pool on a fresh database with every migration in
// MigrationsDir applied.
func NewMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	cfg := NewDatabase(t)

	start := time.Now()
	state, err := postgres.Migrate(cfg.DSN(), MigrationsDir(), postgres.Up, 0)
	if err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("%s migrated to version %d [%s]", cfg.Name, state.Version, time.Since(start))

	pool, err := postgres.NewPool(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("connecting to %s: %v", cfg.Name, err)
	}
	t.Cleanup(pool.Close)
	return pool.DB()
}

// MigrationsDir returns the absolute path of the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
