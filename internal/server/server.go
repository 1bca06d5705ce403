package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/facturacr/facturacr/internal/clave"
	"github.com/facturacr/facturacr/internal/config"
	"github.com/facturacr/facturacr/internal/document"
	documentdomain "github.com/facturacr/facturacr/internal/document/domain"
	"github.com/facturacr/facturacr/internal/observability"
	obsmiddleware "github.com/facturacr/facturacr/internal/observability/logger"
	obsmetrics "github.com/facturacr/facturacr/internal/observability/metrics"
	obstracing "github.com/facturacr/facturacr/internal/observability/tracing"
	"github.com/facturacr/facturacr/internal/ratelimit"
	"github.com/facturacr/facturacr/internal/series"
	seriesdomain "github.com/facturacr/facturacr/internal/series/domain"
	"github.com/facturacr/facturacr/internal/tenant"
	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	tenant.Module,
	series.Module,
	clave.Module,
	document.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	tenantSvc   tenantdomain.Service
	documentSvc documentdomain.Service
	allocator   seriesdomain.Allocator
	limiter     *ratelimit.DocumentLimiter
	limits      *config.LimitsHolder
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	TenantSvc   tenantdomain.Service
	DocumentSvc documentdomain.Service
	Allocator   seriesdomain.Allocator
	Limiter     *ratelimit.DocumentLimiter `optional:"true"`
	Limits      *config.LimitsHolder       `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		tenantSvc:   p.TenantSvc,
		documentSvc: p.DocumentSvc,
		allocator:   p.Allocator,
		limiter:     p.Limiter,
		limits:      p.Limits,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Reference catalogs --------
	api.GET("/reference/document-types", s.ListDocumentTypes)
	api.GET("/reference/tax-codes", s.ListTaxCodes)
	api.GET("/reference/iva-tariffs", s.ListIVATariffs)
	api.GET("/reference/sale-conditions", s.ListSaleConditions)
	api.GET("/reference/payment-methods", s.ListPaymentMethods)
	api.GET("/reference/discount-types", s.ListDiscountTypes)
	api.GET("/reference/other-charge-types", s.ListOtherChargeTypes)

	// -------- Documents --------
	api.POST("/documents", s.APIKeyRequired(), s.DocumentRateLimit(), s.CreateDocument)
	api.GET("/documents", s.APIKeyRequired(), s.ListDocuments)
	api.GET("/documents/:id", s.APIKeyRequired(), s.GetDocumentByID)
	api.GET("/claves/:clave", s.APIKeyRequired(), s.GetDocumentByClave)

	// -------- Series --------
	api.GET("/series/next", s.APIKeyRequired(), s.PeekNextConsecutive)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	// Tenant provisioning is open only outside production; production
	// installs bootstrap through SEED_TENANT_NAME.
	if s.cfg.Environment != "production" {
		admin.POST("/tenants", s.CreateTenant)
	}
	admin.GET("/tenants/me", s.APIKeyRequired(), s.GetCurrentTenant)
}
