package runtime

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsync/shared/batch"
	"petsync/shared/config"
	"petsync/shared/integration"
	"petsync/shared/lifecycle"
	"petsync/shared/observability"
	"petsync/shared/storage"
)

func localConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Database.Adapter = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "petsync.db")
	cfg.Storage.Provider = "fs"
	cfg.Storage.FSRoot = t.TempDir()
	return cfg
}

func quietProvider() *observability.DefaultProvider {
	return observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})
}

func TestNew_SQLJobRepository(t *testing.T) {
	t.Cleanup(storage.GetProvider().Reset)
	ctx := context.Background()

	rt, err := New(ctx, localConfig(t), Options{Observability: quietProvider()})
	require.NoError(t, err)

	require.NotNil(t, rt.DB)
	require.NotNil(t, rt.Storage)
	require.NotNil(t, rt.Repositories)
	assert.NotNil(t, rt.Repositories.Owners)
	assert.NotNil(t, rt.Repositories.Pets)
	assert.NotNil(t, rt.Launcher)
	assert.NotNil(t, rt.Transfer())

	execution, err := rt.Jobs.CreateJobExecution(ctx, "extractJob", batch.NewParametersBuilder().AddLong("owner_id", 1).Build(), true)
	require.NoError(t, err, "batch tables are migrated")
	assert.Equal(t, batch.StatusStarted, execution.Status)

	code := rt.Stop(ctx, integration.Outcome{Kind: integration.OutcomeSuccess})
	assert.Equal(t, lifecycle.ExitSuccess, code)
	assert.False(t, storage.GetProvider().IsInitialized(), "storage is closed on stop")
	assert.Error(t, rt.DB.Ping(ctx), "database is closed on stop")
}

func TestNew_MemoryJobRepository(t *testing.T) {
	t.Cleanup(storage.GetProvider().Reset)
	cfg := localConfig(t)
	cfg.Batch.JobRepository = "memory"

	var logs bytes.Buffer
	obs := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: &logs})

	rt, err := New(context.Background(), cfg, Options{Observability: obs})
	require.NoError(t, err)
	defer rt.Supervisor.Shutdown(context.Background())

	assert.IsType(t, &batch.MemoryJobRepository{}, rt.Jobs)
	assert.Contains(t, logs.String(), `"message":"Storage attached"`)
	assert.Contains(t, logs.String(), `"provider":"fs"`)
}

func TestNew_FailureClosesOpenedResources(t *testing.T) {
	t.Cleanup(storage.GetProvider().Reset)
	cfg := localConfig(t)
	cfg.Storage.Provider = "ftp"

	rt, err := New(context.Background(), cfg, Options{Observability: quietProvider()})

	assert.Nil(t, rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize storage")
}

func TestCreateJobRepository_Unsupported(t *testing.T) {
	_, err := createJobRepository("redis", nil, quietProvider())
	assert.EqualError(t, err, "unsupported job repository: redis")
}
