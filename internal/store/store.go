// Package store persists evidence packs and their derived documents, keyed
// by (personId, runId, kind). All writes are last-write-wins; absence at any
// read is a valid outcome, returned as the zero value with a nil error so it
// can never be confused with a storage failure.
package store

import (
	"context"

	"github.com/kinfolio/dossier-cli/internal/model"
)

// ArtifactKind tags the three document blobs a run can own.
type ArtifactKind string

const (
	KindPack           ArtifactKind = "pack"
	KindRawDocument    ArtifactKind = "raw"
	KindContextualized ArtifactKind = "contextualized"
)

// Store defines the persistence interface for the dossier pipeline. It is
// the sole authority for the person → run → artifact graph; callers never
// cache it across calls.
type Store interface {
	// Packs
	SavePack(ctx context.Context, personID, runID string, pack *model.EvidencePack) error
	GetPack(ctx context.Context, personID, runID string) (*model.EvidencePack, error)

	// Documents
	SaveRawDocument(ctx context.Context, personID, runID, markdown string) error
	GetRawDocument(ctx context.Context, personID, runID string) (string, error)
	SaveContextualizedDocument(ctx context.Context, personID, runID, markdown string) error
	GetContextualizedDocument(ctx context.Context, personID, runID string) (string, error)

	// Runs. ListRuns is chronological by capturedAt; GetLatestRun resolves
	// the most recent capturedAt, ties broken by most recently persisted.
	ListRuns(ctx context.Context, personID string) ([]model.Run, error)
	GetLatestRun(ctx context.Context, personID string) (*model.Run, error)

	// Persons
	GetPerson(ctx context.Context, personID string) (*model.PersonMetadata, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
