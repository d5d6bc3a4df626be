// Package job defines the extraction batch job: one owner's unnamed pets
// are read in id order and written to a CSV file.
package job

import (
	"petsync/shared/batch"
	"petsync/shared/domain/entity"
	"petsync/shared/domain/repository"
	"petsync/shared/observability"
)

const (
	JobName  = "extractJob"
	StepName = "extractStep"

	ParamOwnerID       = "owner_id"
	ParamFile          = "file"
	ParamExecutionTime = "execution_time"
)

// Parameters every extraction launch must carry
var Parameters = batch.RequiredParameters{
	ParamOwnerID:       batch.TypeLong,
	ParamFile:          batch.TypeString,
	ParamExecutionTime: batch.TypeDate,
}

// Config holds what every extraction job shares
type Config struct {
	Pets       repository.PetRepository
	Repository batch.JobRepository
	Tx         batch.TxManager
	ChunkSize  int
	Logger     observability.Logger
	Metrics    observability.Metrics
}

// New builds an extraction job with its own reader and writer
func New(cfg Config) *batch.Job {
	step := batch.NewChunkStep[entity.Pet, entity.Pet](
		StepName,
		NewPetReader(cfg.Pets, cfg.ChunkSize),
		batch.PassThrough[entity.Pet]{},
		NewCSVWriter(),
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
