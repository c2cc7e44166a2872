package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"molstack/application/commands/bus"
	querybus "molstack/application/queries/bus"
	"molstack/infrastructure/config"
	"molstack/interfaces/http/rest/handlers"
	"molstack/interfaces/http/rest/middleware"
	"molstack/pkg/auth"
	"molstack/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	cfg        *config.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health and metrics
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil && rt.cfg.EnableMetrics {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.jwtValidator(), rt.logger))

		r.Route("/documents", func(r chi.Router) {
			documentHandler := handlers.NewDocumentHandler(rt.commandBus, rt.queryBus, rt.logger)
			r.Post("/", documentHandler.CreateDocument)
			r.Get("/", documentHandler.ListDocuments)
			r.Post("/import", documentHandler.ImportDocument)

			r.Route("/{documentID}", func(r chi.Router) {
				r.Delete("/", documentHandler.DeleteDocument)
				r.Get("/structure", documentHandler.GetStructure)
				r.Get("/export", documentHandler.ExportDocument)

				r.Route("/layers", func(r chi.Router) {
					r.Get("/", documentHandler.ListLayers)
					r.Post("/", documentHandler.PushLayer)
					r.Post("/{index}", documentHandler.InsertLayer)
					r.Delete("/{index}", documentHandler.RemoveLayer)
					r.Post("/{index}/move", documentHandler.MoveLayer)
				})
			})
		})
	})

	return router
}

// jwtValidator builds the token validator, or nil when no secret is
// configured and authentication is disabled.
func (rt *Router) jwtValidator() *auth.JWTValidator {
	if rt.cfg.JWTSecret == "" {
		if rt.cfg.IsProduction() {
			rt.logger.Error("Running production without a JWT secret")
		}
		return nil
	}
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: rt.cfg.JWTSecret,
		Issuer:    rt.cfg.JWTIssuer,
	})
	if err != nil {
		rt.logger.Error("Failed to build JWT validator", zap.Error(err))
		return nil
	}
	return validator
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
