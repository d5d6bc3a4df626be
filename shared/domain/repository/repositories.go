package repository

// Repositories contains all repository instances
type Repositories struct {
	Owners OwnerRepository
	Pets   PetRepository
}

// NewRepositories creates a new repository container
func NewRepositories(owners OwnerRepository, pets PetRepository) *Repositories {
	return &Repositories{
		Owners: owners,
		Pets:   pets,
	}
}
