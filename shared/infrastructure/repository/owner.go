package repository

import "petsync/shared/domain/entity"

type ownerRepository struct {
	*baseRepository[entity.Owner]
}
