package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"petsync/shared/config"
	"petsync/shared/observability"
	"petsync/shared/storage/types"
)

// ErrNotInitialized is returned by GetStorage before Initialize succeeded.
var ErrNotInitialized = errors.New("storage not initialized")

// Provider owns the process-wide object store.
type Provider struct {
	mu      sync.RWMutex
	storage types.ObjectStorage
	kind    string
}

var (
	shared     *Provider
	sharedOnce sync.Once
)

// GetProvider returns the process-wide provider.
func GetProvider() *Provider {
	sharedOnce.Do(func() { shared = &Provider{} })
	return shared
}

// Initialize builds the configured store. Calling it again after a success
// keeps the existing store.
func (p *Provider) Initialize(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.storage != nil {
		return nil
	}
	if !cfg.IsStorageEnabled() {
		return errors.New("storage is not configured")
	}

	store, err := New(&cfg.Storage, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	p.storage, p.kind = store, cfg.Storage.Provider

	logger.Info(context.Background(), "Object storage ready", observability.Fields{"provider": p.kind})
	return nil
}

func (p *Provider) GetStorage() (types.ObjectStorage, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.storage == nil {
		return nil, ErrNotInitialized
	}
	return p.storage, nil
}

func (p *Provider) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.storage != nil
}

// Kind is the provider name the store was built from, empty before
// Initialize.
func (p *Provider) Kind() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.kind
}

// Close drops the store. Both adapters only hold pooled connections or
// nothing at all, so there is nothing else to release.
func (p *Provider) Close() error {
	p.Reset()
	return nil
}

// Reset forgets the store so the next Initialize builds a new one.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.storage, p.kind = nil, ""
}
