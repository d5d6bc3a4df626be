package job

import (
	"context"
	"fmt"

	"petsync/shared/batch"
	"petsync/shared/domain/entity"
	"petsync/shared/domain/repository"
	"petsync/shared/observability"
)

// NameProcessor copies the name of a row onto the stored pet. Rows for
// pets that no longer exist are dropped.
type NameProcessor struct {
	pets   repository.PetRepository
	logger observability.Logger
}

func NewNameProcessor(pets repository.PetRepository, logger observability.Logger) *NameProcessor {
	return &NameProcessor{pets: pets, logger: logger}
}

func (p *NameProcessor) Process(ctx context.Context, record entity.PetRecord) (batch.Result[entity.Pet], error) {
	pet, found, err := p.pets.FindByID(ctx, record.ID)
	if err != nil {
		return batch.Result[entity.Pet]{}, fmt.Errorf("find pet %d: %w", record.ID, err)
	}
	if !found {
		p.logger.Warn(ctx, "Skipping unknown pet", observability.Fields{
			"pet_id":   record.ID,
			"owner_id": record.OwnerID,
		})
		return batch.Drop[entity.Pet](), nil
	}

	pet.Name = record.NamePtr()
	return batch.Keep(pet), nil
}

// PetWriter stores processed pets
type PetWriter struct {
	pets repository.PetRepository
}

func NewPetWriter(pets repository.PetRepository) *PetWriter {
	return &PetWriter{pets: pets}
}

func (w *PetWriter) Write(ctx context.Context, pets []entity.Pet) error {
	return w.pets.Upsert(ctx, pets)
}
