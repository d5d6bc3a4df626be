// Package flow wires the ingestion pipeline: files in the source bucket are
// synced locally and each one becomes one ingestion job.
package flow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"petsync/shared/batch"
	"petsync/shared/config"
	"petsync/shared/domain/repository"
	"petsync/shared/integration"
	"petsync/shared/observability"
	"petsync/shared/storage"
	"petsync/workers/ingestor/internal/job"
)

// Deps are the collaborators of one ingestion cycle
type Deps struct {
	Transfer *storage.Transfer
	Runner   *integration.JobRunner
	Cleanup  *integration.Cleanup
	Clock    *integration.UniqueClock
	Provider observability.Provider
}

// FileSource moves every object under the source prefix into localDir and
// lists the files there, oldest name first. Files left behind by an
// earlier failed cycle are picked up again.
func FileSource(transfer *storage.Transfer, cfg config.IngestConfig) integration.Source[string] {
	return func(ctx context.Context) ([]string, error) {
		if _, err := transfer.Sync(ctx, cfg.Bucket, cfg.Prefix, cfg.LocalDir); err != nil {
			return nil, err
		}
		return ListFiles(cfg.LocalDir)
	}
}

// ListFiles returns the absolute paths of the regular files under dir,
// sorted. A missing dir holds no files.
func ListFiles(dir string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.Type().IsRegular() && filepath.Base(path)[0] != '.' {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Transformer binds one local file to a launch
func Transformer(file string, at time.Time) (batch.JobParameters, error) {
	return batch.NewParametersBuilder().
		AddString(job.ParamFile, file).
		AddDate(job.ParamExecutionTime, at).
		Build(), nil
}

// Handler runs one file's chain: transform, ingest, clean up
func Handler(deps Deps) integration.Handler[string] {
	return func(ctx context.Context, msg integration.Message[string]) error {
		file := msg.Payload
		params, err := Transformer(file, deps.Clock.Now())
		if err != nil {
			return &integration.ItemError{Stage: "transform", Item: file, Err: err}
		}

		if _, err := deps.Runner.Run(ctx, params); err != nil {
			return &integration.ItemError{Stage: "ingest", Item: file, Err: err}
		}

		deps.Cleanup.RemoveLocal(ctx, file)
		return nil
	}
}

// New assembles the ingestion flow for one cycle
func New(cfg *config.Config, deps Deps) *integration.Flow[string] {
	logger := deps.Provider.Logger("flow.ingest")
	metrics := deps.Provider.Metrics("flow.ingest")
	terminator := integration.NewTerminator(logger, metrics)

	return &integration.Flow[string]{
		Poller: integration.NewPoller[string]("files", &integration.FireOnceTrigger{},
			FileSource(deps.Transfer, cfg.Ingest), deps.Provider.Logger("poller"), deps.Provider.Metrics("poller")),
		Filter:     integration.NonEmpty[string],
		Splitter:   integration.NewSplitter[string]("files", terminator, logger),
		Terminator: terminator,
		Describe:   filepath.Base,
		Handler: integration.Chain(Handler(deps),
			integration.Recovery[string](),
			integration.Logging[string](logger),
			integration.Metrics[string](metrics, "ingest"),
		),
		Concurrency: cfg.Agent.Concurrency,
		FailFast:    cfg.Agent.FailFast,
		Logger:      logger,
	}
}

// NewJobFactory builds ingestion jobs sharing one repository and chunk size
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
