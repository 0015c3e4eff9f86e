package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/modules/audit"
	"github.com/orbitcommerce/auth-core/internal/modules/auth"
	"github.com/orbitcommerce/auth-core/internal/pkg/response"
)

func registerRoutes(
	engine *gin.Engine,
	authHandler *auth.Handler,
	auditHandler *audit.Handler,
	loginRateMW gin.HandlerFunc,
) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := engine.Group("/api")
	authHandler.RegisterRoutes(api, loginRateMW)
	auditHandler.RegisterRoutes(api)

	engine.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	engine.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })
	engine.HandleMethodNotAllowed = true
}
