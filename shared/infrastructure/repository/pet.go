package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"petsync/shared/database"
	"petsync/shared/domain/entity"
	"petsync/shared/observability"
)

const petUpsertSuffix = "ON CONFLICT (id) DO UPDATE SET owner_id = excluded.owner_id, name = excluded.name"

type petRepository struct {
	*baseRepository[entity.Pet]
}

// ListUnnamedByOwner pages through an owner's unnamed pets by id
func (r *petRepository) ListUnnamedByOwner(ctx context.Context, ownerID, afterID int64, limit int) ([]entity.Pet, error) {
	query := r.selectRows().
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where(squirrel.Eq{"name": nil}).
		Where(squirrel.Gt{"id": afterID}).
		OrderBy("id").
		Limit(uint64(limit))

	return r.selectAll(ctx, "list_unnamed", query)
}

// Upsert writes all pets in one statement
func (r *petRepository) Upsert(ctx context.Context, pets []entity.Pet) error {
	if len(pets) == 0 {
		return nil
	}

	query := r.db.Builder().
		Insert(r.table).
		Columns("id", "owner_id", "name").
		Suffix(petUpsertSuffix)
	for _, pet := range pets {
		query = query.Values(pet.ID, pet.OwnerID, pet.Name)
	}

	err := r.run(ctx, "upsert", query, func(q database.Executor, stmt string, args []any) error {
		_, err := q.ExecContext(ctx, stmt, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert %d pets: %w", len(pets), err)
	}
	r.logger.Debug(ctx, "Pets upserted", observability.Fields{"count": len(pets)})
	return nil
}
