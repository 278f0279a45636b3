package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kinfolio/dossier-cli/internal/dossier"
	"github.com/kinfolio/dossier-cli/internal/model"
	"github.com/kinfolio/dossier-cli/internal/render"
	"github.com/kinfolio/dossier-cli/internal/validate"
)

// maxPackBytes bounds an import payload.
const maxPackBytes = 16 << 20

type importResponse struct {
	Status              string            `json:"status"`
	PersonID            string            `json:"personId"`
	RunID               string            `json:"runId"`
	Redacted            bool              `json:"redacted"`
	HasLivingIndicators bool              `json:"hasLivingIndicators,omitempty"`
	Redactions          []model.Redaction `json:"redactions,omitempty"`
}

// handleImportPack accepts an evidence pack payload, validates it, optionally
// redacts it, renders the raw dossier, and persists both artifacts.
func (s *Server) handleImportPack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPackBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	pack, err := validate.Pack(body)
	if err != nil {
		var rej *validate.Rejection
		if errors.As(err, &rej) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": rej.Msg,
				"kind":  string(rej.Kind),
				"field": rej.Field,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	personID := pack.Person.FamilySearchID
	if personID == "" {
		writeError(w, http.StatusBadRequest, "person.familySearchId is required")
		return
	}

	resp := importResponse{Status: "imported", PersonID: personID, RunID: pack.RunID}

	stored := pack
	if wantRedaction(r) {
		result := s.redactor.Redact(pack)
		stored = result.RedactedPack
		resp.Redacted = true
		resp.HasLivingIndicators = result.HasLivingIndicators
		resp.Redactions = result.Redactions
	}

	ctx := r.Context()
	if err := s.store.SavePack(ctx, personID, pack.RunID, stored); err != nil {
		zap.L().Error("pack save failed", zap.String("person_id", personID), zap.String("run_id", pack.RunID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist pack")
		return
	}
	if err := s.store.SaveRawDocument(ctx, personID, pack.RunID, render.Document(stored)); err != nil {
		zap.L().Error("raw document save failed", zap.String("person_id", personID), zap.String("run_id", pack.RunID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist raw document")
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	runs, err := s.store.ListRuns(r.Context(), personID)
	if err != nil {
		zap.L().Error("list runs failed", zap.String("person_id", personID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"personId": personID, "runs": runs})
}

func (s *Server) handleGetContextualized(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")
	runID := r.URL.Query().Get("runId")

	state, err := s.workflow.Get(r.Context(), personID, runID)
	if err != nil {
		zap.L().Error("contextualized read failed", zap.String("person_id", personID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read contextualized document")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSaveContextualized(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	var req struct {
		RunID    string `json:"runId"`
		Markdown string `json:"markdown"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.workflow.Save(r.Context(), personID, req.RunID, req.Markdown); err != nil {
		var verr *dossier.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		zap.L().Error("contextualized save failed", zap.String("person_id", personID), zap.String("run_id", req.RunID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save contextualized document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "runId": req.RunID})
}

func wantRedaction(r *http.Request) bool {
	switch r.URL.Query().Get("redact") {
	case "1", "true", "yes":
		return true
	}
	return false
}
