package repository

import (
	"petsync/shared/database"
	"petsync/shared/domain/entity"
	"petsync/shared/domain/repository"
	"petsync/shared/observability"
)

// NewRepositories creates all repository instances over db
func NewRepositories(db *database.DB, obs observability.Provider) *repository.Repositories {
	logger := obs.Logger("repository")
	metrics := obs.Metrics("repository")

	return repository.NewRepositories(
		NewOwnerRepository(db, logger, metrics),
		NewPetRepository(db, logger, metrics),
	)
}

// NewOwnerRepository reads the owner table
func NewOwnerRepository(db *database.DB, logger observability.Logger, metrics observability.Metrics) repository.OwnerRepository {
	return &ownerRepository{
		baseRepository: newBaseRepository[entity.Owner](db, logger, metrics, "owner", "id", "name"),
	}
}

// NewPetRepository reads and writes the pet table
func NewPetRepository(db *database.DB, logger observability.Logger, metrics observability.Metrics) repository.PetRepository {
	return &petRepository{
		baseRepository: newBaseRepository[entity.Pet](db, logger, metrics, "pet", "id", "owner_id", "name"),
	}
}
