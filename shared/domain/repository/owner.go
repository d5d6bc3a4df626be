package repository

import "petsync/shared/domain/entity"

type OwnerRepository interface {
	BaseRepository[entity.Owner]
}
