package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/middleware"
)

// NewRouter builds the API router.
//
// Routes:
//
//	POST /api/auth/signin  → authHandler.SignIn
//	GET  /api/settings     → syncHandler.Settings
//	GET  /api/event-types  → syncHandler.EventTypes
//	GET  /api/sessions     → syncHandler.Sessions
//	POST /api/batch        → syncHandler.Batch
//
// Every route except sign-in requires a bearer token.
func NewRouter(
	authHandler *AuthHandler,
	syncHandler *SyncHandler,
	authenticator middleware.Authenticator,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.TokenAuth(authenticator, logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signin", authHandler.SignIn)

		r.Get("/settings", syncHandler.Settings)
		r.Get("/event-types", syncHandler.EventTypes)
		r.Get("/sessions", syncHandler.Sessions)
		r.Post("/batch", syncHandler.Batch)
	})

	return r
}
