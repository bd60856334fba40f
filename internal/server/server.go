package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/cicilan/internal/authorization"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/config"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
	notificationdomain "github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/smallbiznis/cicilan/internal/observability"
	obsmiddleware "github.com/smallbiznis/cicilan/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/cicilan/internal/observability/metrics"
	obstracing "github.com/smallbiznis/cicilan/internal/observability/tracing"
	plandomain "github.com/smallbiznis/cicilan/internal/paymentplan/domain"
	"github.com/smallbiznis/cicilan/internal/ratelimit"
	"github.com/smallbiznis/cicilan/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the HTTP API. Domain modules are supplied by the binary.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RunHTTP),
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

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type jobRunner interface {
	RunJob(ctx context.Context, name string) (scheduler.JobResult, error)
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	clock           clock.Clock
	authzSvc        authorization.Service
	creditSvc       creditdomain.Service
	planSvc         plandomain.Service
	notificationSvc notificationdomain.Service
	publicLimiter   *ratelimit.PublicLimiter
	obsMetrics      *obsmetrics.Metrics
	jobs            jobRunner
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Clock           clock.Clock
	AuthzSvc        authorization.Service
	CreditSvc       creditdomain.Service
	PlanSvc         plandomain.Service
	NotificationSvc notificationdomain.Service
	PublicLimiter   *ratelimit.PublicLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics      `optional:"true"`
	Scheduler       *scheduler.Scheduler     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		clock:           p.Clock,
		authzSvc:        p.AuthzSvc,
		creditSvc:       p.CreditSvc,
		planSvc:         p.PlanSvc,
		notificationSvc: p.NotificationSvc,
		publicLimiter:   p.PublicLimiter,
		obsMetrics:      p.ObsMetrics,
	}
	if p.Scheduler != nil {
		svc.jobs = p.Scheduler
	}
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func RegisterRoutes(s *Server) {
	s.RegisterPublicRoutes()
	s.RegisterCustomerRoutes()
	s.RegisterAdminRoutes()
}

func (s *Server) RegisterPublicRoutes() {
	api := s.engine.Group("/api")

	api.GET("/plans/available", s.PublicRateLimit(), s.ListAvailablePlans)
	api.POST("/plans/:id/preview", s.PublicRateLimit(), s.PreviewPlan)
	api.POST("/affordability", s.PublicRateLimit(), s.CheckAffordability)
	api.GET("/payment-methods", s.ListPaymentMethods)
	api.POST("/webhooks/whatsapp", s.HandleWhatsAppWebhook)
}

func (s *Server) RegisterCustomerRoutes() {
	credits := s.engine.Group("/api/credits", s.AuthRequired(RoleCustomer))

	credits.POST("", s.authorize(authorization.ObjectCredit, authorization.ActionCreditCreate), s.CreateCredit)
	credits.GET("", s.authorize(authorization.ObjectCredit, authorization.ActionCreditView), s.ListMyCredits)
	credits.GET("/:id", s.authorize(authorization.ObjectCredit, authorization.ActionCreditView), s.GetMyCredit)
	credits.GET("/:id/installments", s.authorize(authorization.ObjectCredit, authorization.ActionCreditView), s.ListMyInstallments)
	credits.GET("/:id/early-payoff", s.authorize(authorization.ObjectCredit, authorization.ActionCreditPayoff), s.GetMyEarlyPayoff)
	credits.GET("/:id/schedule.xlsx", s.authorize(authorization.ObjectCredit, authorization.ActionCreditExport), s.ExportMyScheduleXLSX)
	credits.GET("/:id/schedule.pdf", s.authorize(authorization.ObjectCredit, authorization.ActionCreditExport), s.ExportMySchedulePDF)
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired(RoleAdmin))

	// -------- Payment plans --------
	admin.GET("/plans", s.authorize(authorization.ObjectPaymentPlan, authorization.ActionPlanView), s.ListPlans)
	admin.POST("/plans", s.authorize(authorization.ObjectPaymentPlan, authorization.ActionPlanCreate), s.CreatePlan)
	admin.GET("/plans/:id", s.authorize(authorization.ObjectPaymentPlan, authorization.ActionPlanView), s.GetPlan)
	admin.PATCH("/plans/:id", s.authorize(authorization.ObjectPaymentPlan, authorization.ActionPlanUpdate), s.UpdatePlan)
	admin.DELETE("/plans/:id", s.authorize(authorization.ObjectPaymentPlan, authorization.ActionPlanDelete), s.DeletePlan)
	admin.GET("/plans/:id/stats", s.authorize(authorization.ObjectPaymentPlan, authorization.ActionPlanView), s.GetPlanStats)

	// -------- Credits --------
	admin.GET("/credits", s.authorize(authorization.ObjectCredit, authorization.ActionCreditView), s.ListCredits)
	admin.GET("/credits/:id", s.authorize(authorization.ObjectCredit, authorization.ActionCreditView), s.GetCredit)
	admin.GET("/credits/:id/history", s.authorize(authorization.ObjectHistory, authorization.ActionHistoryView), s.GetCreditHistory)
	admin.POST("/credits/:id/approve", s.authorize(authorization.ObjectCredit, authorization.ActionCreditApprove), s.ApproveCredit)
	admin.POST("/credits/:id/reject", s.authorize(authorization.ObjectCredit, authorization.ActionCreditReject), s.RejectCredit)

	// -------- Installments --------
	admin.POST("/installments/:id/payments", s.authorize(authorization.ObjectInstallment, authorization.ActionInstallmentPay), s.RecordPayment)
	admin.GET("/installments/:id/receipt.pdf", s.authorize(authorization.ObjectInstallment, authorization.ActionInstallmentReceipt), s.DownloadReceipt)

	// -------- Notifications --------
	admin.GET("/notifications/failed", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationView), s.ListFailedNotifications)
	admin.POST("/notifications/:id/resend", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationResend), s.ResendNotification)

	// -------- Jobs --------
	admin.POST("/jobs/:job/run", s.authorize(authorization.ObjectJob, authorization.ActionJobRun), s.RunJob)
}
