package repository

import "context"

// BaseRepository defines read operations shared by all repositories
type BaseRepository[T any] interface {
	// FindByID reports found=false, not an error, for a missing row
	FindByID(ctx context.Context, id int64) (entity T, found bool, err error)
	ListAll(ctx context.Context) ([]T, error)
}
