package entity

import (
	"fmt"
	"strconv"
)

// Pet belongs to one Owner. A nil Name marks a pet awaiting a name.
type Pet struct {
	ID      int64   `db:"id"`
	OwnerID int64   `db:"owner_id"`
	Name    *string `db:"name"`
}

// HasName reports whether the pet has been named
func (p Pet) HasName() bool {
	return p.Name != nil
}

// PetRecord is one parsed CSV row: id, owner_id, name
type PetRecord struct {
	ID      int64
	OwnerID int64
	Name    string
}

// CSVHeader is the header line of every pet file
var CSVHeader = []string{"id", "owner_id", "name"}

// Fields renders the pet as a CSV row in header order; a nil name is empty
func (p Pet) Fields() []string {
	name := ""
	if p.Name != nil {
		name = *p.Name
	}
	return []string{
		strconv.FormatInt(p.ID, 10),
		strconv.FormatInt(p.OwnerID, 10),
		name,
	}
}

// ParsePetRecord reads a CSV row in header order
func ParsePetRecord(fields []string) (PetRecord, error) {
	if len(fields) != len(CSVHeader) {
		return PetRecord{}, fmt.Errorf("expected %d fields, got %d", len(CSVHeader), len(fields))
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return PetRecord{}, fmt.Errorf("invalid id %q: %w", fields[0], err)
	}
	ownerID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return PetRecord{}, fmt.Errorf("invalid owner_id %q: %w", fields[1], err)
	}
	return PetRecord{ID: id, OwnerID: ownerID, Name: fields[2]}, nil
}

// NamePtr returns nil for an empty name
func (r PetRecord) NamePtr() *string {
	if r.Name == "" {
		return nil
	}
	name := r.Name
	return &name
}
