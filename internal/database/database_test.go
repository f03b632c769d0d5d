package database

import (
	"context"
	"testing"
	"time"

	"products-backend/internal/config"
	"products-backend/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Port(),
		User:            "user",
		Password:        "password",
		Database:        "testdb",
		Schema:          "public",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}
}

func TestDatabaseLifecycle(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	svc, err := New(cfg)
	require.NoError(t, err)

	health := svc.Health(ctx)
	assert.Equal(t, "up", health["status"])
	assert.Equal(t, "testdb", health["database"])

	db := svc.DB()
	logger := zap.NewNop()

	require.NoError(t, RunMigrations(ctx, db, migrations.FS, logger))
	// a second run is a no-op
	require.NoError(t, RunMigrations(ctx, db, migrations.FS, logger))
	require.NoError(t, GetMigrationStatus(ctx, db, migrations.FS, logger))

	var created, updated time.Time
	var id int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO products (attributes) VALUES ('{"name":"lamp"}') RETURNING id, created_at`).
		Scan(&id, &created)
	require.NoError(t, err)

	err = db.QueryRowContext(ctx,
		`UPDATE products SET attributes = attributes || '{"stock":2}'::jsonb WHERE id = $1 RETURNING updated_at`, id).
		Scan(&updated)
	require.NoError(t, err)
	assert.False(t, updated.Before(created), "trigger should move updated_at forward")

	_, err = db.ExecContext(ctx, `INSERT INTO products (attributes) VALUES ('[1,2]')`)
	assert.Error(t, err, "non-object attributes must be rejected")

	require.NoError(t, ResetMigrations(ctx, db, migrations.FS, logger))

	var exists bool
	require.NoError(t, db.QueryRowContext(ctx, `SELECT to_regclass('public.products') IS NOT NULL`).Scan(&exists))
	assert.False(t, exists)

	require.NoError(t, svc.Close())

	down := svc.Health(ctx)
	assert.Equal(t, "down", down["status"])
}

func TestNewFailsWithoutServer(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		User:     "user",
		Password: "password",
		Database: "missing",
		Schema:   "public",
		SSLMode:  "disable",
	}

	_, err := New(cfg)
	assert.Error(t, err)
}
