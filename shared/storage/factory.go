package storage

import (
	"fmt"
	"slices"
	"strings"

	"petsync/shared/config"
	"petsync/shared/observability"
	"petsync/shared/storage/adapters/fs"
	"petsync/shared/storage/adapters/s3"
	"petsync/shared/storage/types"
)

// Constructor builds an object store from the storage section of the config.
type Constructor func(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error)

var constructors = map[string]Constructor{
	"s3": func(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error) {
		client, err := s3.NewClient(cfg, logger, metrics)
		if err != nil {
			return nil, err
		}
		return client, nil
	},
	"fs": func(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error) {
		store, err := fs.NewStorage(cfg.FSRoot, logger, metrics)
		if err != nil {
			return nil, err
		}
		return store, nil
	},
}

// New builds the store named by cfg.Provider.
func New(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error) {
	construct, ok := constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported storage provider: %s (known: %s)", cfg.Provider, strings.Join(Providers(), ", "))
	}
	return construct(cfg, logger, metrics)
}

// Providers lists the supported STORAGE_PROVIDER values.
func Providers() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
