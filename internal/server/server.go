package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	"github.com/merchantiq/catalogsync/internal/config"
	"github.com/merchantiq/catalogsync/internal/scheduler"
	"github.com/merchantiq/catalogsync/internal/syncrun"
	tenantdomain "github.com/merchantiq/catalogsync/internal/tenant/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server exited", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	tenants      tenantdomain.Registry
	products     catalogdomain.Repository
	orchestrator *syncrun.Orchestrator
	status       *syncrun.StatusStore
	scheduler    *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Tenants      tenantdomain.Registry
	Products     catalogdomain.Repository
	Orchestrator *syncrun.Orchestrator
	Status       *syncrun.StatusStore
	Scheduler    *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		tenants:      p.Tenants,
		products:     p.Products,
		orchestrator: p.Orchestrator,
		status:       p.Status,
		scheduler:    p.Scheduler,
	}

	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerAdminRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(s.AdminAuthRequired())

	v1.POST("/tenants", s.InstallTenant)
	v1.GET("/tenants/:id", s.GetTenant)
	v1.DELETE("/tenants/:id", s.DeactivateTenant)
	v1.GET("/tenants/:id/products", s.ListProducts)

	v1.POST("/tenants/:id/sync", s.TriggerSync)
	v1.GET("/tenants/:id/sync-status", s.GetSyncStatus)
	v1.POST("/tenants/:id/plan-changed", s.PlanChanged)
}
