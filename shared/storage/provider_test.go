package storage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsync/shared/config"
	"petsync/shared/observability"
	mockObservability "petsync/shared/observability/mocks"
	"petsync/shared/storage/adapters/fs"
	mockStorage "petsync/shared/storage/mocks"
)

func TestGetProvider_ReturnsSharedInstance(t *testing.T) {
	assert.Same(t, GetProvider(), GetProvider())
}

func TestProvider_Initialize(t *testing.T) {
	obs := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})

	tests := []struct {
		name          string
		config        func(t *testing.T) *config.Config
		expectedError string
	}{
		{
			name: "filesystem provider",
			config: func(t *testing.T) *config.Config {
				cfg := config.DefaultConfig()
				cfg.Storage.Provider = "fs"
				cfg.Storage.FSRoot = t.TempDir()
				return cfg
			},
		},
		{
			name: "storage not configured",
			config: func(t *testing.T) *config.Config {
				return &config.Config{}
			},
			expectedError: "storage is not configured",
		},
		{
			name: "unsupported provider",
			config: func(t *testing.T) *config.Config {
				cfg := config.DefaultConfig()
				cfg.Storage.Provider = "gcs"
				return cfg
			},
			expectedError: "unsupported storage provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &Provider{}

			err := provider.Initialize(tt.config(t), obs.Logger("storage"), obs.Metrics("storage"))

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.False(t, provider.IsInitialized())
				return
			}
			require.NoError(t, err)
			assert.True(t, provider.IsInitialized())
			store, err := provider.GetStorage()
			require.NoError(t, err)
			assert.IsType(t, &fs.Storage{}, store)
		})
	}
}

func TestProvider_InitializeIdempotent(t *testing.T) {
	existing := new(mockStorage.MockObjectStorage)
	provider := &Provider{storage: existing, kind: "fs"}

	err := provider.Initialize(config.DefaultConfig(), new(mockObservability.MockLogger), new(mockObservability.MockMetrics))

	assert.NoError(t, err)
	assert.Same(t, existing, provider.storage)
	assert.Equal(t, "fs", provider.Kind())
}

func TestProvider_Lifecycle(t *testing.T) {
	provider := &Provider{}

	_, err := provider.GetStorage()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, provider.Close(), "closing an empty provider")

	existing := new(mockStorage.MockObjectStorage)
	provider.storage, provider.kind = existing, "s3"

	store, err := provider.GetStorage()
	require.NoError(t, err)
	assert.Same(t, existing, store)

	require.NoError(t, provider.Close())
	assert.False(t, provider.IsInitialized())
	assert.Empty(t, provider.Kind())
}

func TestNew_UnknownProviderListsKnownOnes(t *testing.T) {
	_, err := New(&config.StorageConfig{Provider: "gcs"}, nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: fs, s3")
	assert.Equal(t, []string{"fs", "s3"}, Providers())
}
