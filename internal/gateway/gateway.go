// Package gateway is the stateless edge in front of the internal
// services. It verifies access tokens locally against the shared
// signing key, re-stamps the verified identity as request headers and
// reverse-proxies by path prefix. It holds no session state and never
// consults the token store.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/config"
	"github.com/orbitcommerce/auth-core/internal/middleware"
	jwtpkg "github.com/orbitcommerce/auth-core/internal/pkg/jwt"
	"github.com/orbitcommerce/auth-core/internal/pkg/response"
	"go.uber.org/zap"
)

type route struct {
	prefix string
	proxy  *httputil.ReverseProxy
}

// Gateway verifies and routes. Construct once at startup; all fields
// are read-only afterwards so it is safe for concurrent use.
type Gateway struct {
	issuer *jwtpkg.Issuer
	public []string
	routes []route
	logger *zap.Logger
}

// New builds the gateway from the static route table. Every upstream
// must be an absolute URL.
func New(cfg config.GatewayConfig, issuer *jwtpkg.Issuer, logger *zap.Logger) (*Gateway, error) {
	g := &Gateway{
		issuer: issuer,
		public: cfg.PublicPrefixes,
		logger: logger,
	}
	for _, r := range cfg.Routes {
		target, err := url.Parse(r.Upstream)
		if err != nil {
			return nil, fmt.Errorf("gateway: invalid upstream %q: %w", r.Upstream, err)
		}
		if target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("gateway: upstream %q must be an absolute URL", r.Upstream)
		}
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = g.upstreamError
		g.routes = append(g.routes, route{prefix: r.Prefix, proxy: proxy})
	}
	return g, nil
}

// Handler assembles the gin engine for the gateway process.
func (g *Gateway) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Logger(g.logger))
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.NoRoute(g.handle)
	return engine
}

func (g *Gateway) handle(c *gin.Context) {
	// Inbound identity headers are never trusted. They are stripped
	// before any routing decision so only the gateway can set them.
	stripIdentityHeaders(c.Request)

	if !g.isPublic(c.Request.URL.Path) {
		raw := jwtpkg.NormalizeBearer(c.GetHeader("Authorization"))
		if raw == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		claims, err := g.issuer.Verify(raw)
		if err != nil {
			g.logger.Info("token rejected at edge",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			response.FromError(c, err)
			return
		}
		injectIdentityHeaders(c.Request, claims)
	}

	for _, r := range g.routes {
		if strings.HasPrefix(c.Request.URL.Path, r.prefix) {
			r.proxy.ServeHTTP(c.Writer, c.Request)
			return
		}
	}
	response.NotFound(c)
}

func (g *Gateway) isPublic(path string) bool {
	for _, prefix := range g.public {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *Gateway) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.Error("upstream unreachable",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	fmt.Fprintf(w, `{"type":"error","code":502,"message":"Bad Gateway","reason":"upstream unreachable","path":%q}`, r.URL.Path)
}

func stripIdentityHeaders(r *http.Request) {
	r.Header.Del(middleware.HeaderUserID)
	r.Header.Del(middleware.HeaderUserName)
	r.Header.Del(middleware.HeaderUserRole)
	r.Header.Del(middleware.HeaderUserEmail)
}

func injectIdentityHeaders(r *http.Request, claims *jwtpkg.Claims) {
	r.Header.Set(middleware.HeaderUserID, strconv.FormatInt(claims.UserID, 10))
	r.Header.Set(middleware.HeaderUserName, claims.Username)
	r.Header.Set(middleware.HeaderUserRole, claims.Role)
	r.Header.Set(middleware.HeaderUserEmail, claims.Email)
}
