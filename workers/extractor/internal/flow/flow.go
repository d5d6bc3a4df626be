// Package flow wires the extraction pipeline: every owner becomes one
// extraction job whose CSV is uploaded to the sink bucket.
package flow

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"petsync/shared/batch"
	"petsync/shared/config"
	"petsync/shared/domain/entity"
	"petsync/shared/domain/repository"
	"petsync/shared/integration"
	"petsync/shared/observability"
	"petsync/shared/storage"
	"petsync/workers/extractor/internal/job"
)

// Deps are the collaborators of one extraction cycle
type Deps struct {
	Owners   repository.OwnerRepository
	Transfer *storage.Transfer
	Runner   *integration.JobRunner
	Cleanup  *integration.Cleanup
	Clock    *integration.UniqueClock
	Provider observability.Provider
}

// OwnerSource lists every owner
func OwnerSource(owners repository.OwnerRepository) integration.Source[entity.Owner] {
	return func(ctx context.Context) ([]entity.Owner, error) {
		return owners.ListAll(ctx)
	}
}

// Transformer names the owner's file <localDir>/<ownerId>-<epochMillis>.csv
func Transformer(localDir string) integration.Transformer[entity.Owner] {
	return func(owner entity.Owner, at time.Time) (batch.JobParameters, error) {
		file, err := filepath.Abs(filepath.Join(localDir, fmt.Sprintf("%d-%d.csv", owner.ID, at.UnixMilli())))
		if err != nil {
			return batch.JobParameters{}, fmt.Errorf("resolve output file: %w", err)
		}
		return batch.NewParametersBuilder().
			AddLong(job.ParamOwnerID, owner.ID).
			AddString(job.ParamFile, file).
			AddDate(job.ParamExecutionTime, at).
			Build(), nil
	}
}

// UploadKey is the optional prefix followed by the file base name
func UploadKey(prefix, file string) string {
	base := filepath.Base(file)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// Handler runs one owner's chain: transform, extract, upload, clean up
func Handler(cfg config.ExtractConfig, deps Deps) integration.Handler[entity.Owner] {
	transform := Transformer(cfg.LocalDir)

	return func(ctx context.Context, msg integration.Message[entity.Owner]) error {
		owner := msg.Payload
		params, err := transform(owner, deps.Clock.Now())
		if err != nil {
			return &integration.ItemError{Stage: "transform", Item: describe(owner), Err: err}
		}
		file, _ := params.GetString(job.ParamFile)

		if _, err := deps.Runner.Run(ctx, params); err != nil {
			return &integration.ItemError{Stage: "extract", Item: describe(owner), Err: err}
		}

		if err := deps.Transfer.Upload(ctx, file, cfg.Bucket, UploadKey(cfg.KeyPrefix, file)); err != nil {
			return &integration.ItemError{Stage: "upload", Item: describe(owner), Err: err}
		}

		deps.Cleanup.RemoveLocal(ctx, file)
		return nil
	}
}

// New assembles the extraction flow for one cycle
func New(cfg *config.Config, deps Deps) *integration.Flow[entity.Owner] {
	logger := deps.Provider.Logger("flow.extract")
	metrics := deps.Provider.Metrics("flow.extract")
	terminator := integration.NewTerminator(logger, metrics)

	return &integration.Flow[entity.Owner]{
		Poller: integration.NewPoller[entity.Owner]("owners", &integration.FireOnceTrigger{},
			OwnerSource(deps.Owners), deps.Provider.Logger("poller"), deps.Provider.Metrics("poller")),
		Splitter:   integration.NewSplitter[entity.Owner]("owners", terminator, logger),
		Terminator: terminator,
		Describe:   describe,
		Handler: integration.Chain(Handler(cfg.Extract, deps),
			integration.Recovery[entity.Owner](),
			integration.Logging[entity.Owner](logger),
			integration.Metrics[entity.Owner](metrics, "extract"),
		),
		Concurrency: cfg.Agent.Concurrency,
		FailFast:    cfg.Agent.FailFast,
		Logger:      logger,
	}
}

func describe(owner entity.Owner) string {
	return fmt.Sprintf("owner %d", owner.ID)
}

// NewJobFactory builds extraction jobs sharing one repository and chunk size
func NewJobFactory(pets repository.PetRepository, repo batch.JobRepository, tx batch.TxManager, chunkSize int, obs observability.Provider) integration.JobFactory {
	logger, metrics := obs.Logger("batch"), obs.Metrics("batch")
	return func() *batch.Job {
		return job.New(job.Config{
			Pets:       pets,
			Repository: repo,
			Tx:         tx,
			ChunkSize:  chunkSize,
			Logger:     logger,
			Metrics:    metrics,
		})
	}
}
