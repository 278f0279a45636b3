// Package server exposes the pipeline over HTTP: pack import plus the
// contextualized dossier workflow. Routing, auth, and CORS are chrome around
// the core packages; no business logic lives here.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kinfolio/dossier-cli/internal/dossier"
	"github.com/kinfolio/dossier-cli/internal/redact"
	"github.com/kinfolio/dossier-cli/internal/store"
)

// Identity is the caller identity resolved by the auth collaborator.
type Identity struct {
	Subject   string
	Anonymous bool
}

// IdentityResolver abstracts the hosted identity layer. The pipeline only
// needs "resolve current authenticated identity".
type IdentityResolver interface {
	Resolve(r *http.Request) (Identity, bool)
}

// TokenResolver authenticates a static bearer token. An empty token admits
// every caller as anonymous (local/dev use).
type TokenResolver struct {
	Token string
}

func (t TokenResolver) Resolve(r *http.Request) (Identity, bool) {
	if t.Token == "" {
		return Identity{Subject: "anonymous", Anonymous: true}, true
	}
	if r.Header.Get("Authorization") == "Bearer "+t.Token {
		return Identity{Subject: "token"}, true
	}
	return Identity{}, false
}

// Server wires the HTTP handlers to the pipeline.
type Server struct {
	store    store.Store
	workflow *dossier.Workflow
	redactor *redact.Engine
	identity IdentityResolver
}

// New constructs a server with its dependencies.
func New(st store.Store, wf *dossier.Workflow, redactor *redact.Engine, identity IdentityResolver) *Server {
	return &Server{store: st, workflow: wf, redactor: redactor, identity: identity}
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/packs", s.handleImportPack)
		r.Route("/persons/{personID}", func(r chi.Router) {
			r.Get("/runs", s.handleListRuns)
			r.Get("/contextualized", s.handleGetContextualized)
			r.Post("/contextualized", s.handleSaveContextualized)
		})
	})

	return r
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.identity.Resolve(r); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
