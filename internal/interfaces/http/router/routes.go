package router

import (
	"github.com/gin-gonic/gin"
	"github.com/paycore/backend/internal/infrastructure/config"
	"github.com/paycore/backend/internal/infrastructure/logger"
	"github.com/paycore/backend/internal/interfaces/http/handler"
	"github.com/paycore/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine. Outbox may be nil
// when the outbox administration endpoints are not exposed.
type Handlers struct {
	Payment      *handler.PaymentHandler
	Subscription *handler.SubscriptionHandler
	Outbox       *handler.OutboxHandler
	System       *handler.SystemHandler
}

// EngineConfig configures the middleware stack of the API engine
type EngineConfig struct {
	HTTP    config.HTTPConfig
	Tracing middleware.TracingConfig
	Metrics middleware.HTTPMetricsConfig
	Logger  *zap.Logger
}

// NewEngine builds the gin engine with the middleware stack and every API
// route registered.
//
// Middleware order:
//  1. RequestID, so every later layer sees the id
//  2. Recovery and the request logger
//  3. Tracing, span tagging, error marking, then HTTP metrics
//  4. Security headers, CORS, body limit and the request deadline
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(cfg.Metrics))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	if h.Payment != nil {
		r.Register(PaymentRoutes(h.Payment))
	}
	if h.Subscription != nil {
		r.Register(SubscriptionRoutes(h.Subscription))
	}
	if h.System != nil || h.Outbox != nil {
		r.Register(SystemRoutes(h.System, h.Outbox))
	}
	r.Setup()

	return engine
}

// PaymentRoutes mounts the payment endpoints under /payments. The static
// webhook path is matched before the :id parameter.
func PaymentRoutes(h *handler.PaymentHandler) *DomainGroup {
	g := NewDomainGroup("payments", "/payments")
	g.POST("", h.Create).
		GET("", h.List).
		POST("/webhook", h.Webhook).
		GET("/:id", h.Get).
		POST("/:id/process", h.Process).
		POST("/:id/succeed", h.Succeed).
		POST("/:id/fail", h.Fail).
		POST("/:id/refunds", h.Refund).
		GET("/:id/refunds", h.ListRefunds)
	return g
}

// SubscriptionRoutes mounts the subscription endpoints under /subscriptions
func SubscriptionRoutes(h *handler.SubscriptionHandler) *DomainGroup {
	g := NewDomainGroup("subscriptions", "/subscriptions")
	g.POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.Get).
		POST("/:id/renew", h.Renew).
		POST("/:id/cancel", h.Cancel).
		POST("/:id/pause", h.Pause).
		POST("/:id/resume", h.Resume).
		POST("/:id/payment-failures", h.ReportPaymentFailure)
	return g
}

// SystemRoutes mounts /system/ping and the outbox administration endpoints
func SystemRoutes(system *handler.SystemHandler, outbox *handler.OutboxHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	if system != nil {
		g.GET("/ping", system.Ping)
	}
	if outbox != nil {
		g.Group("outbox", "/outbox").
			GET("/stats", outbox.GetStats).
			GET("/dead", outbox.GetDeadLetterEntries).
			POST("/dead/retry-all", outbox.RetryAllDeadEntries).
			POST("/dead/:id/retry", outbox.RetryDeadEntry).
			GET("/:id", outbox.GetEntry)
	}
	return g
}
