// Package dossier orchestrates the contextualized document lifecycle for a
// (personId, runId) pair: no_runs → not_generated → generated.
package dossier

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/kinfolio/dossier-cli/internal/redact"
	"github.com/kinfolio/dossier-cli/internal/render"
	"github.com/kinfolio/dossier-cli/internal/store"
)

// Status is the machine-checkable workflow state for a person's
// contextualized dossier.
type Status string

const (
	StatusNoRuns       Status = "no_runs"
	StatusNotGenerated Status = "not_generated"
	StatusGenerated    Status = "generated"
)

// ErrNoRuns is returned by Generate when the person has no recorded runs.
var ErrNoRuns = eris.New("dossier: person has no runs")

// ValidationError rejects a write before any store call is made.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dossier: invalid %s: %s", e.Field, e.Msg)
}

// Summarizer is the external AI collaborator: send prompt, receive text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// State is the outcome of a read.
type State struct {
	Status   Status `json:"status"`
	RunID    string `json:"runId,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

// Workflow reads and writes contextualized dossiers through the store.
// Generation is always an explicit, caller-initiated action; reads never
// invoke the summarizer.
type Workflow struct {
	store      store.Store
	summarizer Summarizer
	redactor   *redact.Engine
}

// NewWorkflow wires the workflow to its collaborators. summarizer may be nil
// when generation is not needed (read/save-only callers).
func NewWorkflow(st store.Store, summarizer Summarizer, redactor *redact.Engine) *Workflow {
	return &Workflow{store: st, summarizer: summarizer, redactor: redactor}
}

// Get resolves the workflow state. An empty runID resolves to the latest run.
func (w *Workflow) Get(ctx context.Context, personID, runID string) (*State, error) {
	if runID == "" {
		latest, err := w.store.GetLatestRun(ctx, personID)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return &State{Status: StatusNoRuns}, nil
		}
		runID = latest.RunID
	}

	markdown, err := w.store.GetContextualizedDocument(ctx, personID, runID)
	if err != nil {
		return nil, err
	}
	if markdown == "" {
		return &State{Status: StatusNotGenerated, RunID: runID}, nil
	}
	return &State{Status: StatusGenerated, RunID: runID, Markdown: markdown}, nil
}

// Save persists a contextualized dossier verbatim, overwriting any prior
// document for the run. Validation happens before the store is touched.
func (w *Workflow) Save(ctx context.Context, personID, runID, markdown string) error {
	if strings.TrimSpace(runID) == "" {
		return &ValidationError{Field: "runId", Msg: "must not be empty"}
	}
	if strings.TrimSpace(markdown) == "" {
		return &ValidationError{Field: "markdown", Msg: "must not be empty"}
	}
	return w.store.SaveContextualizedDocument(ctx, personID, runID, markdown)
}

// Generate produces a contextualized draft from the run's evidence via the
// summarizer. It does not save the draft; persistence goes through Save.
// useRedacted runs the pack through the redaction engine first.
func (w *Workflow) Generate(ctx context.Context, personID, runID string, useRedacted bool) (string, error) {
	if w.summarizer == nil {
		return "", eris.New("dossier: no summarizer configured")
	}

	if runID == "" {
		latest, err := w.store.GetLatestRun(ctx, personID)
		if err != nil {
			return "", err
		}
		if latest == nil {
			return "", ErrNoRuns
		}
		runID = latest.RunID
	}

	document, err := w.sourceDocument(ctx, personID, runID, useRedacted)
	if err != nil {
		return "", err
	}

	draft, err := w.summarizer.Summarize(ctx, BuildPrompt(document))
	if err != nil {
		return "", eris.Wrapf(err, "dossier: summarize run %s", runID)
	}
	return draft, nil
}

// sourceDocument prefers re-rendering the stored pack; when only the raw
// document was persisted it uses that instead. Redaction requires the pack.
func (w *Workflow) sourceDocument(ctx context.Context, personID, runID string, useRedacted bool) (string, error) {
	pack, err := w.store.GetPack(ctx, personID, runID)
	if err != nil {
		return "", err
	}
	if pack != nil {
		if useRedacted {
			if w.redactor == nil {
				return "", eris.New("dossier: no redaction engine configured")
			}
			pack = w.redactor.Redact(pack).RedactedPack
		}
		return render.Document(pack), nil
	}

	if useRedacted {
		return "", eris.Errorf("dossier: run %s has no stored pack to redact", runID)
	}
	markdown, err := w.store.GetRawDocument(ctx, personID, runID)
	if err != nil {
		return "", err
	}
	if markdown == "" {
		return "", eris.Errorf("dossier: run %s has no pack or raw document", runID)
	}
	return markdown, nil
}
