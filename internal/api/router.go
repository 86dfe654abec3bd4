package api

import (
	"aichat-relay/internal/config"
	"aichat-relay/internal/handlers"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	RelayHandler *handlers.RelayHandler
	Config       *config.Config
}

// NewRouter creates and configures the relay's Chi router.
func NewRouter(deps RouterDependencies) *chi.Mux {
	if deps.RelayHandler == nil {
		panic("RelayHandler dependency is nil in router setup")
	}
	if deps.Config == nil {
		panic("Config dependency is nil in router setup")
	}

	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.Config.RequestTimeout))

	// --- CORS Configuration ---
	// Origins default to "*"; the relay never sees cookies.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", deps.RelayHandler.HandleHealth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(MaxBodySize(deps.Config.MaxBodyBytes))
		r.Post("/chat", deps.RelayHandler.HandleChat)
	})

	return r
}
