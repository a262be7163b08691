package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/middleware"
	"github.com/noah-isme/sma-report-card/internal/service"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
	"github.com/noah-isme/sma-report-card/pkg/logger"
	"github.com/noah-isme/sma-report-card/pkg/middleware/requestid"
	"github.com/noah-isme/sma-report-card/pkg/response"
)

// RouterDeps collects what the HTTP surface needs. Tracking may be nil when
// tracking is disabled.
type RouterDeps struct {
	Reports  *ReportHandler
	Tracking *TrackingHandler
	Metrics  *MetricsHandler
	Service  *service.MetricsService
	Logger   *zap.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(middleware.Metrics(deps.Service))

	if deps.Metrics != nil {
		r.GET("/health", deps.Metrics.Health)
		r.GET("/metrics", deps.Metrics.Prometheus)
	}

	if deps.Tracking != nil {
		r.GET("/track_open/:id", deps.Tracking.TrackOpen)
		r.GET("/confirm_view/:id", deps.Tracking.ConfirmView)
		r.GET("/tracking/:id", deps.Tracking.Status)
	}

	if deps.Reports != nil {
		r.GET("/reports/:id", deps.Reports.StudentReport)
		r.POST("/reports/:id/export", deps.Reports.ExportReport)
		r.POST("/reports/:id/deliver", deps.Reports.DeliverReport)
		r.GET("/deliveries/:id", deps.Reports.DeliveryStatus)
		r.GET("/export/:token", deps.Reports.DownloadReport)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	return r
}
