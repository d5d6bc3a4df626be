package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPet_Fields(t *testing.T) {
	name := "Leo"
	assert.Equal(t, []string{"1", "10", "Leo"}, Pet{ID: 1, OwnerID: 10, Name: &name}.Fields())
	assert.Equal(t, []string{"2", "10", ""}, Pet{ID: 2, OwnerID: 10}.Fields())
}

func TestParsePetRecord(t *testing.T) {
	record, err := ParsePetRecord([]string{"3", "7", "Basil"})
	require.NoError(t, err)
	assert.Equal(t, PetRecord{ID: 3, OwnerID: 7, Name: "Basil"}, record)
	require.NotNil(t, record.NamePtr())
	assert.Equal(t, "Basil", *record.NamePtr())

	unnamed, err := ParsePetRecord([]string{"4", "7", ""})
	require.NoError(t, err)
	assert.Nil(t, unnamed.NamePtr(), "an empty name stays null")

	_, err = ParsePetRecord([]string{"x", "7", "Rex"})
	assert.ErrorContains(t, err, `invalid id "x"`)

	_, err = ParsePetRecord([]string{"5", "7"})
	assert.ErrorContains(t, err, "expected 3 fields, got 2")
}
