package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"synapse-service/internal/config"
	"synapse-service/internal/metrics"
	"synapse-service/internal/userapi"
	"synapse-service/internal/util"
)

// HealthFunc reports per-dependency errors; a nil entry is healthy.
type HealthFunc func(ctx context.Context) map[string]error

// RouterDeps groups what NewRouter wires together.
type RouterDeps struct {
	Synapse    *SynapseHandler
	BackOffice *BackOfficeHandler
	Users      *userapi.Client
	Health     HealthFunc
	Renderer   *Renderer
	Config     *config.Config
	Logger     *zap.Logger
}

// requireHTTPS rejects any request that wasn’t made over TLS
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUpgradeRequired) // 426
			w.Write([]byte(`{"error":"https required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(deps RouterDeps) chi.Router {
	cfg := deps.Config
	router := chi.NewRouter()

	// Plain HTTP only serves redirects and ACME challenges when TLS is on
	if cfg.Server.EnableTLS {
		router.Use(requireHTTPS)
	}

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(deps.Logger))
	router.Use(metrics.InstrumentHandler)
	router.Use(ExceptionStrategy(deps.Renderer))
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Use(UserStrategy(deps.Users))

	router.Get("/health", healthHandler(deps.Health))
	if cfg.Metrics.Enabled {
		router.Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler())
	}

	// Device routes are public
	router.Get("/login", deps.Synapse.Login)
	router.Get("/authsession", deps.Synapse.AuthSession)
	router.Get("/registerDevice", deps.Synapse.RegisterDevice)

	router.Group(func(r chi.Router) {
		r.Use(Authorize(deps.Renderer, cfg.UserAPI.DefaultModule, cfg.Rest.DisableAuthorization))
		deps.BackOffice.RegisterRoutes(r)
	})

	// 404 handler
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	// Method not allowed handler
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"method not allowed"}`))
	})

	return router
}

func healthHandler(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		components := map[string]string{}
		if check != nil {
			for name, err := range check(ctx) {
				if err != nil {
					util.Warn("Health check failed", util.String("component", name), util.ErrorField(err))
					components[name] = err.Error()
					status = "unhealthy"
					code = http.StatusServiceUnavailable
					continue
				}
				components[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     status,
			"service":    "synapse-service",
			"components": components,
		})
	}
}
