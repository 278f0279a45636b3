package model

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the only evidence pack schema version the pipeline accepts.
const SchemaVersion = "1.0"

// SourceType classifies an evidentiary item attached to a person.
type SourceType string

const (
	SourceTypeRecord SourceType = "record"
	SourceTypeMemory SourceType = "memory"
	SourceTypeStory  SourceType = "story"
	SourceTypePhoto  SourceType = "photo"
	SourceTypeOther  SourceType = "other"
)

// RedactionType identifies which pattern class produced a redaction.
type RedactionType string

const (
	RedactionTypeEmail   RedactionType = "email"
	RedactionTypePhone   RedactionType = "phone"
	RedactionTypeSSN     RedactionType = "ssn"
	RedactionTypeAddress RedactionType = "address"
	RedactionTypeLiving  RedactionType = "living"
)

// EvidencePack is one extraction snapshot of source records for one person.
type EvidencePack struct {
	SchemaVersion        string      `json:"schemaVersion"`
	RunID                string      `json:"runId"`
	CapturedAt           string      `json:"capturedAt"`
	ExtractorVersion     string      `json:"extractorVersion,omitempty"`
	ExtractionDurationMs int64       `json:"extractionDurationMs,omitempty"`
	SourceURL            string      `json:"sourceUrl,omitempty"`
	PageTitle            string      `json:"pageTitle,omitempty"`
	UILocale             string      `json:"uiLocale,omitempty"`
	Person               Person      `json:"person"`
	Sources              []Source    `json:"sources"`
	Diagnostics          Diagnostics `json:"diagnostics"`
}

// Person identifies the individual an evidence pack describes.
type Person struct {
	FamilySearchID string `json:"familySearchId"`
	Name           string `json:"name"`
	BirthDate      string `json:"birthDate,omitempty"`
	DeathDate      string `json:"deathDate,omitempty"`
}

// Diagnostics carries extraction-quality metadata reported by the extractor.
// totalSources need not equal len(sources); both must be non-negative.
type Diagnostics struct {
	Mode             string   `json:"mode,omitempty"`
	TotalSources     int      `json:"totalSources"`
	ExpandedSections int      `json:"expandedSections"`
	FailedExpansions int      `json:"failedExpansions"`
	Warnings         []string `json:"warnings,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

// Source is one evidentiary item (record, memory, story, photo, other).
type Source struct {
	ID                 string      `json:"id"`
	OrderIndex         int         `json:"orderIndex"`
	SourceKey          string      `json:"sourceKey,omitempty"`
	SourceType         SourceType  `json:"sourceType"`
	Title              string      `json:"title"`
	Date               string      `json:"date,omitempty"`
	Citation           string      `json:"citation,omitempty"`
	WebPageURL         string      `json:"webPageUrl,omitempty"`
	AttachedBy         string      `json:"attachedBy,omitempty"`
	AttachedAt         string      `json:"attachedAt,omitempty"`
	ReasonAttached     string      `json:"reasonAttached,omitempty"`
	Tags               []string    `json:"tags,omitempty"`
	Indexed            IndexedData `json:"indexed"`
	RawText            string      `json:"rawText,omitempty"`
	Expanded           bool        `json:"expanded,omitempty"`
	ExpansionAttempts  int         `json:"expansionAttempts,omitempty"`
	ExpansionSucceeded bool        `json:"expansionSucceeded,omitempty"`

	// HasLivingIndicators is set on redacted copies only; the extractor never
	// sends it.
	HasLivingIndicators bool `json:"hasLivingIndicators,omitempty"`
}

// IndexedData holds the structured portion of a source's extracted text.
type IndexedData struct {
	Fields     []IndexedField `json:"fields,omitempty"`
	TextBlocks []string       `json:"textBlocks,omitempty"`
}

// IndexedField is one labeled value extracted from a source.
type IndexedField struct {
	Label    string `json:"label"`
	LabelRaw string `json:"labelRaw,omitempty"`
	Value    string `json:"value"`
}

// Redaction is the audit record of one value replaced during a redaction
// pass. Field is a dotted path relative to the owning source, with array
// indices for repeated fields (e.g. "indexed.fields[2].value").
type Redaction struct {
	SourceID      string        `json:"sourceId"`
	Field         string        `json:"field"`
	OriginalValue string        `json:"originalValue"`
	RedactedValue string        `json:"redactedValue"`
	Type          RedactionType `json:"type"`
}

// Run is a persisted extraction instance and the presence of its artifacts.
type Run struct {
	RunID                     string    `json:"runId"`
	CapturedAt                string    `json:"capturedAt"`
	HasPack                   bool      `json:"hasPack"`
	HasRawDocument            bool      `json:"hasRawDocument"`
	HasContextualizedDocument bool      `json:"hasContextualizedDocument"`
	CreatedAt                 time.Time `json:"createdAt"`
}

// PersonMetadata is the denormalized person summary used for listings.
type PersonMetadata struct {
	FamilySearchID string    `json:"familySearchId"`
	Name           string    `json:"name"`
	BirthDate      string    `json:"birthDate,omitempty"`
	DeathDate      string    `json:"deathDate,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewEmptyEvidencePack returns a minimal pack that passes validation: current
// schema version, a fresh run id, and a capture timestamp of now.
func NewEmptyEvidencePack() *EvidencePack {
	return &EvidencePack{
		SchemaVersion: SchemaVersion,
		RunID:         uuid.New().String(),
		CapturedAt:    time.Now().UTC().Format(time.RFC3339),
		Sources:       []Source{},
	}
}

// Clone returns a deep, independently owned copy of the pack. Redaction
// operates on clones so the caller can keep the original and the sanitized
// version live at the same time.
func (p *EvidencePack) Clone() *EvidencePack {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Sources = make([]Source, len(p.Sources))
	for i := range p.Sources {
		cp.Sources[i] = p.Sources[i].Clone()
	}
	cp.Diagnostics.Warnings = cloneStrings(p.Diagnostics.Warnings)
	cp.Diagnostics.Errors = cloneStrings(p.Diagnostics.Errors)
	return &cp
}

// Clone returns a deep copy of the source.
func (s Source) Clone() Source {
	cp := s
	cp.Tags = cloneStrings(s.Tags)
	cp.Indexed.TextBlocks = cloneStrings(s.Indexed.TextBlocks)
	if s.Indexed.Fields != nil {
		cp.Indexed.Fields = make([]IndexedField, len(s.Indexed.Fields))
		copy(cp.Indexed.Fields, s.Indexed.Fields)
	}
	return cp
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
