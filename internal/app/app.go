// Package app wires the auth server together: configuration in,
// http.Handler out. All construction happens here so main stays thin
// and tests can assemble the same graph with fakes.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/config"
	"github.com/orbitcommerce/auth-core/internal/database"
	"github.com/orbitcommerce/auth-core/internal/middleware"
	"github.com/orbitcommerce/auth-core/internal/modules/audit"
	"github.com/orbitcommerce/auth-core/internal/modules/auth"
	"github.com/orbitcommerce/auth-core/internal/modules/identity"
	"github.com/orbitcommerce/auth-core/internal/modules/token"
	"github.com/orbitcommerce/auth-core/internal/pkg/cron"
	jwtpkg "github.com/orbitcommerce/auth-core/internal/pkg/jwt"
	"github.com/orbitcommerce/auth-core/internal/pkg/mail"
	pkgredis "github.com/orbitcommerce/auth-core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	engine *gin.Engine
	db     *gorm.DB
	rdb    *pkgredis.Client
	cancel context.CancelFunc
}

// New connects the backing stores and assembles the full handler graph.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rdb, err := pkgredis.Connect(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	issuer := jwtpkg.NewIssuer(jwtpkg.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL.Std(),
		RefreshTTL: cfg.JWT.RefreshTTL.Std(),
	})
	users := identity.NewClient(cfg.Identity, logger)
	store := token.NewStore(db, issuer, users, cfg.Session.MaxActive, logger)
	geo := audit.NewGeoClient(cfg.Geo, rdb, logger)
	auditSvc := audit.NewService(db, geo, logger)
	notifier := mail.NewNotifier(cfg.Mail, logger)
	authSvc := auth.NewService(
		users, issuer, store, auditSvc, notifier,
		cfg.Session.StrictLastLoginEnabled(), logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	sched := cron.New()
	registerCronJobs(sched, db, logger)
	sched.Start(ctx)

	a := &App{
		cfg:    cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
		cancel: cancel,
	}
	a.engine = a.newEngine()
	registerRoutes(a.engine,
		auth.NewHandler(authSvc, logger),
		audit.NewHandler(auditSvc, logger),
		middleware.LoginRateLimit(rdb.Raw()),
	)
	return a, nil
}

func (a *App) newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Logger(a.logger), corsMiddleware(a.cfg))
	return engine
}

// Handler exposes the assembled router.
func (a *App) Handler() http.Handler { return a.engine }

// Addr is the listen address for the auth server.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Server.Port) }

// Shutdown stops the background jobs. The HTTP server is shut down
// separately by main.
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
}
