// Package api wires the control HTTP surface (spec §4.5): lifecycle,
// state query and host stats, all gated behind the shared-secret auth
// middleware from internal/auth.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/kswarrior/ks-wings/internal/auth"
	"github.com/kswarrior/ks-wings/internal/deploy"
	"github.com/kswarrior/ks-wings/internal/runtime"
	"github.com/kswarrior/ks-wings/internal/state"
)

// Server groups the dependencies every handler needs. The session
// multiplexer (C6/C7) is mounted separately by whoever builds the Server,
// since it's a distinct component with its own dependencies.
type Server struct {
	pipeline *deploy.Pipeline
	store    *state.Store
	rt       runtime.Runtime
	auth     *auth.Middleware
	session  http.Handler
	started  time.Time
}

// NewServer builds a Server bound to the given dependencies. session may be
// nil, in which case session-channel routes are not mounted.
func NewServer(pipeline *deploy.Pipeline, store *state.Store, rt runtime.Runtime, authMiddleware *auth.Middleware, session http.Handler) *Server {
	return &Server{pipeline: pipeline, store: store, rt: rt, auth: authMiddleware, session: session, started: time.Now()}
}

// Router builds the chi router, grounded on the teacher's cmd/server/main.go
// middleware stack (Logger, Recoverer, RequestID, RealIP), with CORS scoped
// to the panel and an httprate limiter in front of the authenticated
// surface to blunt shared-secret brute-forcing.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, time.Minute))
		r.Use(s.auth.Handler)

		r.Post("/instances/create", s.handleCreate)
		r.Delete("/instances/{id}", s.handleDelete)
		r.Post("/instances/redeploy/{id}/{containerId}", s.handleRedeploy)
		r.Post("/instances/reinstall/{id}/{containerId}", s.handleReinstall)
		r.Put("/instances/edit/{id}", s.handleEdit)
		r.Get("/state/{volumeId}", s.handleGetState)
		r.Get("/stats", s.handleStats)

		if s.session != nil {
			r.Get("/ws/{kind}/{containerId}", s.session.ServeHTTP)
			r.Get("/ws/{kind}/{containerId}/{volumeId}", s.session.ServeHTTP)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
