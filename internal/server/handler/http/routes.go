package http

import (
	"net/http"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the control
// API. It applies CORS (the household UI runs on another origin), JSON
// content-type enforcement, request logging, and shared-secret auth, and
// mounts the identity, attempt, session, and door endpoints under /api.
//
// Routes:
//
//	GET    /api/health            → handler.Health (unauthenticated)
//	GET    /api/identities        → handler.ListIdentities
//	POST   /api/identities        → handler.Enroll
//	DELETE /api/identities/{id}   → handler.RemoveIdentity
//	POST   /api/attempt           → handler.StartAttempt
//	POST   /api/attempt/capture   → handler.SubmitCapture
//	POST   /api/attempt/ack       → handler.AcknowledgeDenial
//	DELETE /api/attempt           → handler.ResetAttempt
//	GET    /api/session           → handler.GetSession
//	POST   /api/door/unlock       → handler.UnlockDoor
//	POST   /api/door/lock         → handler.LockDoor
func NewRouter(
	handler *FaceAuthHandler,
	apiToken string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	// Enforce the shared-secret API token
	r.Use(middleware.TokenAuth(apiToken))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.Health)

		r.Get("/identities", handler.ListIdentities)
		r.Post("/identities", handler.Enroll)
		r.Delete("/identities/{id}", handler.RemoveIdentity)

		r.Post("/attempt", handler.StartAttempt)
		r.Post("/attempt/capture", handler.SubmitCapture)
		r.Post("/attempt/ack", handler.AcknowledgeDenial)
		r.Delete("/attempt", handler.ResetAttempt)

		r.Get("/session", handler.GetSession)

		r.Post("/door/unlock", handler.UnlockDoor)
		r.Post("/door/lock", handler.LockDoor)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Api-Token"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
