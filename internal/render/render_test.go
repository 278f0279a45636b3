package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinfolio/dossier-cli/internal/model"
)

func samplePack() *model.EvidencePack {
	return &model.EvidencePack{
		SchemaVersion:    model.SchemaVersion,
		RunID:            "run-1",
		CapturedAt:       "2024-03-01T12:00:00Z",
		ExtractorVersion: "1.4.2",
		Person: model.Person{
			FamilySearchID: "KWZP-8X1",
			Name:           "Margaret Hale",
			BirthDate:      "12 May 1871",
			DeathDate:      "3 Jan 1942",
		},
		Sources: []model.Source{
			{
				ID:         "s2",
				OrderIndex: 2,
				Title:      "1900 Census",
				SourceType: model.SourceTypeRecord,
				Date:       "1900",
				Citation:   "US Census 1900, Ohio",
				Tags:       []string{"census", "ohio"},
				Indexed: model.IndexedData{
					Fields:     []model.IndexedField{{Label: "Age", Value: "29"}},
					TextBlocks: []string{"Head of household"},
				},
			},
			{
				ID:         "s1",
				OrderIndex: 1,
				Title:      "Birth Record",
				RawText:    "Born in Marion County",
			},
		},
	}
}

func TestDocument_Deterministic(t *testing.T) {
	pack := samplePack()
	first := Document(pack)
	second := Document(pack)
	assert.Equal(t, first, second, "same pack must render byte-identically")
}

func TestDocument_PersonHeader(t *testing.T) {
	doc := Document(samplePack())

	assert.True(t, strings.HasPrefix(doc, "# Margaret Hale\n"))
	assert.Contains(t, doc, "**FamilySearch ID:** KWZP-8X1\n")
	assert.Contains(t, doc, "**Born:** 12 May 1871\n")
	assert.Contains(t, doc, "**Died:** 3 Jan 1942\n")
	assert.Contains(t, doc, "_Captured 2024-03-01T12:00:00Z by extractor 1.4.2 (run run-1)._")
}

func TestDocument_SourcesOrderedByOrderIndex(t *testing.T) {
	doc := Document(samplePack())

	birth := strings.Index(doc, "### 1. Birth Record")
	census := strings.Index(doc, "### 2. 1900 Census")
	require.GreaterOrEqual(t, birth, 0)
	require.GreaterOrEqual(t, census, 0)
	assert.Less(t, birth, census, "lower orderIndex renders first")
}

func TestDocument_StableTieBreak(t *testing.T) {
	pack := &model.EvidencePack{
		RunID:      "run-1",
		CapturedAt: "2024-03-01T12:00:00Z",
		Person:     model.Person{Name: "Margaret Hale"},
		Sources: []model.Source{
			{ID: "a", OrderIndex: 5, Title: "First In Array"},
			{ID: "b", OrderIndex: 5, Title: "Second In Array"},
		},
	}

	doc := Document(pack)
	assert.Contains(t, doc, "### 1. First In Array")
	assert.Contains(t, doc, "### 2. Second In Array")
}

func TestDocument_OmitsAbsentOptionalLines(t *testing.T) {
	pack := &model.EvidencePack{
		RunID:      "run-1",
		CapturedAt: "2024-03-01T12:00:00Z",
		Person:     model.Person{Name: "Margaret Hale"},
		Sources:    []model.Source{{ID: "s1", Title: "Sparse Source"}},
	}

	doc := Document(pack)
	assert.NotContains(t, doc, "**Type:**")
	assert.NotContains(t, doc, "**Date:**")
	assert.NotContains(t, doc, "**Citation:**")
	assert.NotContains(t, doc, "**URL:**")
	assert.NotContains(t, doc, "**Tags:**")
	assert.NotContains(t, doc, "#### Indexed Fields")
	assert.NotContains(t, doc, "#### Raw Text")
	assert.NotContains(t, doc, "**FamilySearch ID:**")
}

func TestDocument_Fallbacks(t *testing.T) {
	pack := &model.EvidencePack{
		RunID:      "run-1",
		CapturedAt: "2024-03-01T12:00:00Z",
		Sources:    []model.Source{{ID: "s1"}},
	}

	doc := Document(pack)
	assert.True(t, strings.HasPrefix(doc, "# Unknown Person\n"))
	assert.Contains(t, doc, "### 1. Untitled Source")
	// No extractor version: capture line drops the clause.
	assert.Contains(t, doc, "_Captured 2024-03-01T12:00:00Z (run run-1)._")
}

func TestDocument_NoSourcesOmitsSection(t *testing.T) {
	pack := &model.EvidencePack{
		RunID:      "run-1",
		CapturedAt: "2024-03-01T12:00:00Z",
		Person:     model.Person{Name: "Margaret Hale"},
	}

	doc := Document(pack)
	assert.NotContains(t, doc, "## Sources")
}

func TestDocument_RawTextFenced(t *testing.T) {
	doc := Document(samplePack())

	assert.Contains(t, doc, "#### Raw Text\n\n```\nBorn in Marion County\n```\n")
}

func TestDocument_IndexedSections(t *testing.T) {
	doc := Document(samplePack())

	assert.Contains(t, doc, "#### Indexed Fields\n\n- **Age:** 29\n")
	assert.Contains(t, doc, "#### Extracted Text\n\n> Head of household\n")
}

func TestDocument_AttachedByVariants(t *testing.T) {
	pack := samplePack()
	pack.Sources = []model.Source{
		{ID: "s1", Title: "With Timestamp", AttachedBy: "researcher1", AttachedAt: "2020-01-02"},
		{ID: "s2", OrderIndex: 1, Title: "Without Timestamp", AttachedBy: "researcher2"},
	}

	doc := Document(pack)
	assert.Contains(t, doc, "- **Attached by:** researcher1 (2020-01-02)\n")
	assert.Contains(t, doc, "- **Attached by:** researcher2\n")
}

func TestDocument_DoesNotMutateInput(t *testing.T) {
	pack := samplePack()
	Document(pack)

	// Sorting happens on a copy; the caller's slice keeps its order.
	assert.Equal(t, "s2", pack.Sources[0].ID)
	assert.Equal(t, "s1", pack.Sources[1].ID)
}
