//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

// startPostgres launches a PostgreSQL 16 container and returns its config.
func startPostgres(t *testing.T) postgres.PostgresConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "metaboscope_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return postgres.PostgresConfig{
		Host: host, Port: port.Int(), Database: "metaboscope_test",
		Username: "test", Password: "test",
	}
}

func TestMigrateAndRoundTrip(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	migrator, err := postgres.NewMigrator(postgres.BuildDSN(cfg), nil)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Up(), "second run is a no-op")
	state, err := migrator.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), state.Version)
	assert.False(t, state.Dirty)
	require.NoError(t, migrator.Close())

	conn, err := postgres.NewConnection(ctx, cfg, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.HealthCheck(ctx))

	repo := repositories.NewSnapshotRepository(conn, nil)
	for i, name := range []string{"first", "second"} {
		require.NoError(t, repo.Save(ctx, &explorer.SnapshotRecord{
			ID:        fmt.Sprintf("snap-%d", i),
			SessionID: "sess",
			Name:      name,
			Snapshot:  explorer.Snapshot{Version: explorer.SnapshotVersion, Settings: explorer.DefaultSettings()},
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := repo.List(ctx, "sess", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)
	assert.True(t, list[0].Snapshot.Settings.Filter)

	require.NoError(t, repo.Delete(ctx, "snap-0"))
	_, err = repo.Get(ctx, "snap-0")
	assert.True(t, errors.IsNotFound(err))
}
