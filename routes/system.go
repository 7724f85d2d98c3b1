package routes

import (
	"net/http"

	"gestion-optica-api/internal/health"

	"github.com/gin-gonic/gin"
)

// SetupSystemRoutes registers the liveness and health endpoints.
func SetupSystemRoutes(router *gin.Engine, svc *health.Service) {
	router.GET("/", handleServiceInfo(svc))
	router.GET("/health", handleHealth(svc))
}

func handleServiceInfo(svc *health.Service) gin.HandlerFunc {
	endpoints := EndpointDirectory()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Info(endpoints))
	}
}

func handleHealth(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, snapshot := svc.Check(c.Request.Context())
		c.JSON(status, snapshot)
	}
}
