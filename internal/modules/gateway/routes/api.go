package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	httpHandlers "github.com/codeduel/match-core/internal/modules/gateway/http"
	gatewayMiddleware "github.com/codeduel/match-core/internal/modules/gateway/middleware"
	"github.com/codeduel/match-core/internal/services"
)

// SetupRoutes configures and returns the main HTTP router
func SetupRoutes(container *services.Container, logger *logrus.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(gatewayMiddleware.LogrusMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(gatewayMiddleware.CORS())

	authHandler := httpHandlers.NewAuthHandler(container.Identity, logger)
	healthHandler := httpHandlers.NewHealthHandler(container, logger)
	centrifugoProxy := httpHandlers.NewCentrifugoProxyHandler(container.JWTManager, container.Dispatcher, container.Sessions, container.Matchmaker, container.MatchState, container.FSM, logger)

	healthHandler.RegisterRoutes(r)
	centrifugoProxy.RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			response := httpHandlers.NewAPIInfoResponse("codeduel match-core API v1", "ready")

			render.Status(r, http.StatusOK)
			render.Render(w, r, response)
		})

		authHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(gatewayMiddleware.JWTAuth(container.JWTManager, logger))

			r.Get("/leaderboard", httpHandlers.NewLeaderboardHandler(container.Players, logger).GetLeaderboard)
		})
	})

	return r
}
