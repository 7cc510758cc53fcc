package api

import (
	"net/http"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/api/handlers"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/api/middleware"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/service"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handlers.NewAuthHandler(services.Auth)
	gameHandler := handlers.NewGameHandler(services.Game)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			r.Route("/games", func(r chi.Router) {
				r.Post("/", gameHandler.Create)
				r.Get("/{id}", gameHandler.Get)
				r.Post("/{id}/moves", gameHandler.SubmitMove)
				r.Get("/{id}/pgn", gameHandler.GetPGN)
				r.Get("/{id}/score", gameHandler.GetScores)
			})

			r.Route("/users/me/games", func(r chi.Router) {
				r.Get("/", gameHandler.GetMyGames)
				r.Get("/live", gameHandler.GetLiveGame)
			})
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
