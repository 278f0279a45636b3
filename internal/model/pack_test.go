package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmptyEvidencePack(t *testing.T) {
	pack := NewEmptyEvidencePack()

	assert.Equal(t, SchemaVersion, pack.SchemaVersion)
	assert.NotEmpty(t, pack.CapturedAt)
	assert.NotNil(t, pack.Sources)
	assert.Empty(t, pack.Sources)

	_, err := uuid.Parse(pack.RunID)
	assert.NoError(t, err, "run id must be a uuid")

	// Two packs never share a run id.
	assert.NotEqual(t, pack.RunID, NewEmptyEvidencePack().RunID)
}

func TestClone_Independence(t *testing.T) {
	orig := &EvidencePack{
		SchemaVersion: SchemaVersion,
		RunID:         "run-1",
		CapturedAt:    "2024-03-01T12:00:00Z",
		Person:        Person{FamilySearchID: "KWZP-8X1", Name: "Margaret Hale"},
		Diagnostics:   Diagnostics{Warnings: []string{"partial expansion"}},
		Sources: []Source{
			{
				ID:      "s1",
				Title:   "Census record",
				Tags:    []string{"census"},
				RawText: "original text",
				Indexed: IndexedData{
					Fields:     []IndexedField{{Label: "Age", Value: "29"}},
					TextBlocks: []string{"block one"},
				},
			},
		},
	}

	clone := orig.Clone()
	require.NotSame(t, orig, clone)

	clone.Person.Name = "Changed"
	clone.Sources[0].RawText = "mutated"
	clone.Sources[0].Tags[0] = "mutated"
	clone.Sources[0].Indexed.Fields[0].Value = "99"
	clone.Sources[0].Indexed.TextBlocks[0] = "mutated"
	clone.Diagnostics.Warnings[0] = "mutated"

	assert.Equal(t, "Margaret Hale", orig.Person.Name)
	assert.Equal(t, "original text", orig.Sources[0].RawText)
	assert.Equal(t, "census", orig.Sources[0].Tags[0])
	assert.Equal(t, "29", orig.Sources[0].Indexed.Fields[0].Value)
	assert.Equal(t, "block one", orig.Sources[0].Indexed.TextBlocks[0])
	assert.Equal(t, "partial expansion", orig.Diagnostics.Warnings[0])
}

func TestClone_Nil(t *testing.T) {
	var pack *EvidencePack
	assert.Nil(t, pack.Clone())
}

func TestClone_PreservesNilSlices(t *testing.T) {
	orig := &EvidencePack{Sources: []Source{{ID: "s1"}}}
	clone := orig.Clone()
	assert.Nil(t, clone.Sources[0].Tags)
	assert.Nil(t, clone.Sources[0].Indexed.Fields)
}
