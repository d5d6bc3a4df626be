package main

import (
	"context"
	"fmt"
	"os"

	"petsync/shared/config"
	"petsync/shared/infrastructure/runtime"
	"petsync/shared/integration"
	"petsync/shared/lifecycle"
	"petsync/workers/ingestor/internal/flow"
)

const serviceName = "pet-ingestor"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfiguration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return lifecycle.ExitFailure
	}

	rt, err := initializeDependencies(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		return lifecycle.ExitFailure
	}

	app := buildApplication(rt)

	return start(rt, app)
}

// loadConfiguration loads and validates the agent configuration
func loadConfiguration() (*config.Config, error) {
	provider := config.GetProvider()
	if err := provider.Load(serviceName); err != nil {
		return nil, err
	}
	return provider.Get()
}

// initializeDependencies opens observability, database, storage and the
// batch engine
func initializeDependencies(cfg *config.Config) (*runtime.Runtime, error) {
	ctx := context.Background()
	rt, err := runtime.New(ctx, cfg, runtime.Options{})
	if err != nil {
		return nil, err
	}

	if cfg.IsLocal() {
		if err := rt.Storage.CreateBucket(ctx, cfg.Ingest.Bucket); err != nil {
			_ = rt.Supervisor.Shutdown(ctx)
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Ingest.Bucket, err)
		}
	}
	return rt, nil
}

// buildApplication assembles the ingestion flow
func buildApplication(rt *runtime.Runtime) *integration.Flow[string] {
	obs := rt.Observability
	jobs := flow.NewJobFactory(rt.Repositories.Pets, rt.Jobs, rt.DB, rt.Config.Batch.ChunkSize, obs)

	return flow.New(rt.Config, flow.Deps{
		Transfer: rt.Transfer(),
		Runner:   integration.NewJobRunner(rt.Launcher, jobs),
		Cleanup:  integration.NewCleanup(obs.Logger("cleanup"), obs.Metrics("cleanup")),
		Clock:    integration.NewUniqueClock(),
		Provider: obs,
	})
}

// start runs one cycle and stops the agent
func start(rt *runtime.Runtime, app *integration.Flow[string]) int {
	ctx, cancel := rt.Supervisor.Context(context.Background(), rt.Config.Agent.Timeout)
	defer cancel()

	outcome := app.Run(ctx)
	return rt.Stop(context.WithoutCancel(ctx), outcome)
}
