// Package runtime assembles the infrastructure every agent runs on: the
// observability provider, the database, object storage and the batch
// engine. Resources are registered with a lifecycle.Supervisor so they
// close in reverse order when the agent stops.
package runtime

import (
	"context"
	"fmt"

	"petsync/shared/batch"
	"petsync/shared/config"
	"petsync/shared/database"
	domainrepo "petsync/shared/domain/repository"
	"petsync/shared/infrastructure/repository"
	"petsync/shared/integration"
	"petsync/shared/lifecycle"
	"petsync/shared/observability"
	"petsync/shared/storage"
	"petsync/shared/storage/types"
)

// Runtime holds the initialized infrastructure of one agent process
type Runtime struct {
	Config        *config.Config
	Observability *observability.DefaultProvider
	DB            *database.DB
	Repositories  *domainrepo.Repositories
	Storage       types.ObjectStorage
	Jobs          batch.JobRepository
	Launcher      *batch.Launcher
	Supervisor    *lifecycle.Supervisor
	Logger        observability.Logger
}

// Options override parts of the runtime, mostly for tests
type Options struct {
	Observability *observability.DefaultProvider
}

// New initializes every resource. On failure whatever was already opened
// is closed again.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	obs := opts.Observability
	if obs == nil {
		obs = observability.NewProvider(&observability.Config{
			ServiceName:    cfg.ServiceName,
			Environment:    cfg.Environment,
			LogLevel:       cfg.LogLevel,
			PushgatewayURL: cfg.Observability.PushgatewayURL,
		})
	}

	rt := &Runtime{
		Config:        cfg,
		Observability: obs,
		Logger:        obs.Logger("runtime"),
	}
	rt.Supervisor = lifecycle.NewSupervisor(rt.Logger)
	rt.Supervisor.Register("observability", obs)

	rt.Logger.Info(ctx, "Starting agent", observability.Fields{
		"service":     cfg.ServiceName,
		"environment": cfg.Environment,
	})

	for _, step := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", rt.openDatabase},
		{"storage", rt.openStorage},
		{"batch", rt.openBatch},
	} {
		if err := step.fn(ctx); err != nil {
			rt.Logger.Error(ctx, "Failed to initialize agent", err, observability.Fields{"component": step.name})
			_ = rt.Supervisor.Shutdown(ctx)
			return nil, fmt.Errorf("initialize %s: %w", step.name, err)
		}
	}

	return rt, nil
}

func (rt *Runtime) openDatabase(ctx context.Context) error {
	db, err := database.Open(&rt.Config.Database, rt.Observability.Logger("database"), rt.Observability.Metrics("database"))
	if err != nil {
		return err
	}
	rt.Supervisor.Register("database", db)
	rt.DB = db
	rt.Repositories = repository.NewRepositories(db, rt.Observability)

	if rt.Config.Database.Migrate && rt.Config.Batch.JobRepository == "sql" {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) openStorage(ctx context.Context) error {
	provider := storage.GetProvider()
	if err := provider.Initialize(rt.Config, rt.Observability.Logger("storage"), rt.Observability.Metrics("storage")); err != nil {
		return err
	}
	rt.Supervisor.Register("storage", provider)

	store, err := provider.GetStorage()
	if err != nil {
		return err
	}
	rt.Storage = store
	rt.Observability.Logger("runtime").Info(ctx, "Storage attached", observability.Fields{"provider": provider.Kind()})
	return nil
}

func (rt *Runtime) openBatch(context.Context) error {
	jobs, err := createJobRepository(rt.Config.Batch.JobRepository, rt.DB, rt.Observability)
	if err != nil {
		return err
	}
	rt.Jobs = jobs
	rt.Launcher = batch.NewLauncher(jobs, rt.Observability.Logger("launcher"), rt.Observability.Metrics("launcher"))
	return nil
}

// createJobRepository picks where execution metadata lives
func createJobRepository(kind string, db *database.DB, obs observability.Provider) (batch.JobRepository, error) {
	switch kind {
	case "sql":
		return repository.NewJobRepository(db, obs.Logger("job_repository"), obs.Metrics("job_repository")), nil
	case "memory":
		return batch.NewMemoryJobRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported job repository: %s", kind)
	}
}

// Transfer returns a transfer service over the runtime's object storage
func (rt *Runtime) Transfer() *storage.Transfer {
	return storage.NewTransfer(rt.Storage, rt.Observability.Logger("transfer"), rt.Observability.Metrics("transfer"))
}

// Stop closes every resource and returns the exit code for outcome
func (rt *Runtime) Stop(ctx context.Context, outcome integration.Outcome) int {
	return rt.Supervisor.Stop(ctx, outcome)
}
