// backend/src/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/username/secid/backend/src/security"
	"github.com/username/secid/backend/src/services"
	"github.com/username/secid/backend/src/utils"
)

// RouterConfig carries the services and limits the HTTP surface is built from.
type RouterConfig struct {
	BatchService   services.BatchService
	SessionService services.SessionService
	AuthService    *security.AuthService
	Limiter        *rate.Limiter
	AllowedOrigins []string
	MaxUploadSize  int64
}

// NewRouter mounts every endpoint under /api.
func NewRouter(cfg RouterConfig) *chi.Mux {
	batchHandler := NewBatchHandler(cfg.BatchService, cfg.MaxUploadSize)
	sessionHandler := NewSessionHandler(cfg.SessionService)
	adminHandler := NewAdminHandler(cfg.AuthService, cfg.SessionService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.AllowedOrigins))
	if cfg.Limiter != nil {
		r.Use(RateLimitMiddleware(cfg.Limiter))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/process", batchHandler.HandleProcess)
		r.Post("/error-log", sessionHandler.HandleErrorLog)
		r.Get("/stats", sessionHandler.HandleStats)
		r.Get("/audit", sessionHandler.HandleAuditLog)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.HandleListSessions)
			r.Post("/", sessionHandler.HandleSaveSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.HandleGetSession)
				r.Delete("/", sessionHandler.HandleDeleteSession)
				r.Get("/records", sessionHandler.HandleListRecords)
				r.Get("/errors", sessionHandler.HandleSessionErrorLog)
			})
		})

		r.Post("/auth/token", adminHandler.HandleToken)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.AuthService))
			r.Post("/query", adminHandler.HandleQuery)
			r.Get("/export", adminHandler.HandleExport)
		})
	})

	return r
}
