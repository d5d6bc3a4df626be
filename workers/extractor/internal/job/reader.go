package job

import (
	"context"
	"fmt"

	"petsync/shared/batch"
	"petsync/shared/domain/entity"
	"petsync/shared/domain/repository"
)

const lastIDKey = "pet_reader.last_id"

// PetReader pages through one owner's unnamed pets by id. The last id
// read is the restart checkpoint.
type PetReader struct {
	pets     repository.PetRepository
	pageSize int

	ownerID   int64
	lastID    int64
	page      []entity.Pet
	exhausted bool
}

// NewPetReader creates a reader fetching pageSize pets per query
func NewPetReader(pets repository.PetRepository, pageSize int) *PetReader {
	if pageSize <= 0 {
		pageSize = batch.DefaultChunkSize
	}
	return &PetReader{pets: pets, pageSize: pageSize}
}

// Open binds the reader to the owner_id of the running job
func (r *PetReader) Open(ctx context.Context, ec batch.ExecutionContext) error {
	params, ok := batch.JobParametersFrom(ctx)
	if !ok {
		return fmt.Errorf("pet reader opened outside a job execution")
	}
	ownerID, ok := params.GetLong(ParamOwnerID)
	if !ok {
		return fmt.Errorf("missing %s parameter", ParamOwnerID)
	}

	r.ownerID = ownerID
	r.lastID, _ = ec.Int64(lastIDKey)
	r.page = nil
	r.exhausted = false
	return nil
}

func (r *PetReader) Update(ec batch.ExecutionContext) error {
	ec.PutInt64(lastIDKey, r.lastID)
	return nil
}

func (r *PetReader) Close() error {
	r.page = nil
	return nil
}

func (r *PetReader) Read(ctx context.Context) (entity.Pet, bool, error) {
	if len(r.page) == 0 {
		if r.exhausted {
			return entity.Pet{}, false, nil
		}
		page, err := r.pets.ListUnnamedByOwner(ctx, r.ownerID, r.lastID, r.pageSize)
		if err != nil {
			return entity.Pet{}, false, fmt.Errorf("list unnamed pets of owner %d: %w", r.ownerID, err)
		}
		r.page = page
		r.exhausted = len(page) < r.pageSize
		if len(page) == 0 {
			return entity.Pet{}, false, nil
		}
	}

	pet := r.page[0]
	r.page = r.page[1:]
	r.lastID = pet.ID
	return pet, true, nil
}
