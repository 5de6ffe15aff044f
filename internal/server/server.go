package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/covena/internal/alert"
	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
	"github.com/smallbiznis/covena/internal/audit"
	auditdomain "github.com/smallbiznis/covena/internal/audit/domain"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/company"
	companydomain "github.com/smallbiznis/covena/internal/company/domain"
	"github.com/smallbiznis/covena/internal/config"
	"github.com/smallbiznis/covena/internal/covenant"
	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	"github.com/smallbiznis/covena/internal/engine"
	enginedomain "github.com/smallbiznis/covena/internal/engine/domain"
	"github.com/smallbiznis/covena/internal/notification"
	notificationdomain "github.com/smallbiznis/covena/internal/notification/domain"
	"github.com/smallbiznis/covena/internal/observability"
	obslogger "github.com/smallbiznis/covena/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/covena/internal/observability/metrics"
	obstracing "github.com/smallbiznis/covena/internal/observability/tracing"
	"github.com/smallbiznis/covena/internal/ratio"
	ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"
	"github.com/smallbiznis/covena/internal/scheduler"
	"github.com/smallbiznis/covena/internal/testresult"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	company.Module,
	covenant.Module,
	ratio.Module,
	testresult.Module,
	engine.Module,
	alert.Module,
	notification.Module,
	audit.Module,
	scheduler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obsCfg.ServiceName))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
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

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	clock  clock.Clock
	genID  *snowflake.Node

	companySvc      companydomain.Service
	covenantSvc     covenantdomain.Service
	ratioSvc        ratiodomain.Service
	engineSvc       enginedomain.Service
	alertSvc        alertdomain.Service
	notificationSvc notificationdomain.Service
	auditSvc        auditdomain.Recorder
	resultRepo      resultdomain.Repository

	scheduler *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	Clock clock.Clock
	GenID *snowflake.Node

	CompanySvc      companydomain.Service
	CovenantSvc     covenantdomain.Service
	RatioSvc        ratiodomain.Service
	EngineSvc       enginedomain.Service
	AlertSvc        alertdomain.Service
	NotificationSvc notificationdomain.Service
	AuditSvc        auditdomain.Recorder
	ResultRepo      resultdomain.Repository

	Scheduler *scheduler.Scheduler
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		clock:           p.Clock,
		genID:           p.GenID,
		companySvc:      p.CompanySvc,
		covenantSvc:     p.CovenantSvc,
		ratioSvc:        p.RatioSvc,
		engineSvc:       p.EngineSvc,
		alertSvc:        p.AlertSvc,
		notificationSvc: p.NotificationSvc,
		auditSvc:        p.AuditSvc,
		resultRepo:      p.ResultRepo,
		scheduler:       p.Scheduler,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Companies --------
	api.GET("/companies", s.ListCompanies)
	api.POST("/companies", s.CreateCompany)
	api.GET("/companies/:id", s.GetCompanyByID)

	// -------- Ratio snapshots --------
	api.POST("/companies/:id/ratios", s.IngestRatioSnapshot)
	api.GET("/companies/:id/ratios/latest", s.GetLatestRatioSnapshot)

	// -------- Covenants --------
	api.GET("/covenants", s.ListCovenantConfigs)
	api.POST("/covenants", s.CreateCovenantConfig)
	api.POST("/covenants/validate", s.ValidateCovenantConfig)
	api.GET("/covenants/:id", s.GetCovenantConfigByID)
	api.PATCH("/covenants/:id", s.UpdateCovenantConfig)

	// -------- Alert policies --------
	api.GET("/covenants/:id/alert-config", s.GetAlertConfig)
	api.PUT("/covenants/:id/alert-config", s.UpsertAlertConfig)

	// -------- Evaluation --------
	api.POST("/companies/:id/evaluate", s.EvaluateCompany)
	api.GET("/companies/:id/results", s.ListTestResults)
	api.GET("/companies/:id/compliance-score", s.GetComplianceScore)

	// -------- Alerts --------
	api.GET("/alerts", s.ListAlerts)
	api.GET("/alerts/stats", s.GetAlertStats)
	api.POST("/alerts/:id/acknowledge", s.AcknowledgeAlert)
	api.POST("/alerts/:id/resolve", s.ResolveAlert)

	// -------- Notifications --------
	api.GET("/notifications/in-app", s.ListInAppNotifications)

	// -------- Audit --------
	api.GET("/audit", s.ListAuditEntries)
}
