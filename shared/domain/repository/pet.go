package repository

import (
	"context"

	"petsync/shared/domain/entity"
)

type PetRepository interface {
	BaseRepository[entity.Pet]

	// ListUnnamedByOwner returns up to limit unnamed pets of ownerID with
	// id > afterID, ordered by id
	ListUnnamedByOwner(ctx context.Context, ownerID, afterID int64, limit int) ([]entity.Pet, error)

	// Upsert inserts each pet or overwrites the row with the same id
	Upsert(ctx context.Context, pets []entity.Pet) error
}
