// Package job defines the ingestion batch job: rows of a pet CSV file are
// matched to stored pets and their names written back.
package job

import (
	"petsync/shared/batch"
	"petsync/shared/domain/entity"
	"petsync/shared/domain/repository"
	"petsync/shared/observability"
)

const (
	JobName  = "ingestJob"
	StepName = "ingestStep"

	ParamFile          = "file"
	ParamExecutionTime = "execution_time"
)

// Parameters every ingestion launch must carry
var Parameters = batch.RequiredParameters{
	ParamFile:          batch.TypeString,
	ParamExecutionTime: batch.TypeDate,
}

// Config holds what every ingestion job shares
type Config struct {
	Pets       repository.PetRepository
	Repository batch.JobRepository
	Tx         batch.TxManager
	ChunkSize  int
	Logger     observability.Logger
	Metrics    observability.Metrics
}

// New builds an ingestion job with its own reader
func New(cfg Config) *batch.Job {
	step := batch.NewChunkStep[entity.PetRecord, entity.Pet](
		StepName,
		NewCSVReader(),
		NewNameProcessor(cfg.Pets, cfg.Logger),
		NewPetWriter(cfg.Pets),
		batch.StepConfig{
			ChunkSize:  cfg.ChunkSize,
			Repository: cfg.Repository,
			Tx:         cfg.Tx,
			Logger:     cfg.Logger,
			Metrics:    cfg.Metrics,
		},
	)
	return batch.NewJob(JobName, Parameters, step)
}
