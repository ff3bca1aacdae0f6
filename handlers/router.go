package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	appmw "notekeeper/middleware"
)

type RouterConfig struct {
	Identity       IdentityService
	Notes          NoteService
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxBodyBytes   int64
	// AuthLimiter throttles /auth routes per client IP when set.
	AuthLimiter appmw.AttemptLimiter
}

// NewRouter wires the routes. Every /notes route requires a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Identity, cfg.Logger)
	notesHandler := NewNotesHandler(cfg.Notes, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(appmw.RequestID)
	r.Use(appmw.Authenticate(cfg.Identity, cfg.Logger))
	r.Use(appmw.Logger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(appmw.CORS(cfg.AllowedOrigins))
	if cfg.MaxBodyBytes > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodyBytes))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		if cfg.AuthLimiter != nil {
			r.Use(appmw.RateLimit(cfg.AuthLimiter, cfg.Logger))
		}
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Use(appmw.RequireAuth)
		r.Get("/", notesHandler.GetNotes)
		r.Post("/", notesHandler.CreateNote)
		r.Put("/{id}", notesHandler.UpdateNote)
		r.Patch("/{id}", notesHandler.UpdateNote)
		r.Delete("/{id}", notesHandler.DeleteNote)
	})

	return r
}
