package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"gestion-optica-api/internal/config"
	"gestion-optica-api/internal/health"
	"gestion-optica-api/internal/ratelimit"
	"gestion-optica-api/internal/telemetry"
	"gestion-optica-api/middleware"
	"gestion-optica-api/utils"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	Limiter *ratelimit.Limiter
	Health  *health.Service
	// Modules attaches domain handlers by prefix. Prefixes without a module
	// answer 501.
	Modules map[string]Module
}

// NewRouter builds the engine with the ingress pipeline in its fixed order:
// origin policy, security headers, rate limiter, then routes. Errors from any
// stage are rendered by the normalizer.
func NewRouter(d Deps) (*gin.Engine, error) {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	if err := router.SetTrustedProxies(d.Config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(), middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(d.Metrics))
	router.Use(middleware.ErrorHandler(d.Config.IsProduction(), d.Logger, d.Metrics))
	router.Use(middleware.Recovery())

	router.Use(middleware.CORSMiddleware(middleware.NewOriginPolicy(d.Config), d.Logger, d.Metrics))
	router.Use(middleware.SecurityHeaders(d.Config))
	router.Use(middleware.RateLimitMiddleware(d.Limiter, d.Logger, d.Metrics))
	router.Use(middleware.RequestSizeLimit(middleware.DefaultMaxBodyBytes))

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(utils.NotFound("route not found"))
		c.Abort()
	})
	router.NoMethod(func(c *gin.Context) {
		_ = c.Error(utils.NewAppError(http.StatusMethodNotAllowed, utils.CodeMethodNotAllow, "method not allowed"))
		c.Abort()
	})

	SetupSystemRoutes(router, d.Health)
	SetupModuleRoutes(router, d.Modules, d.Logger)

	return router, nil
}
