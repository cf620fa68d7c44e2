package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RequestLogger logs one line per request after it completes.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		log.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP())
	}
}

// SetupRouter wires every route. serviceName labels the request spans.
func SetupRouter(h *Handler, serviceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(serviceName), RequestLogger(h.log))
	r.SetHTMLTemplate(Templates())

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})
	r.GET("/dashboard", h.Dashboard)
	r.POST("/dashboard/signals/:id/research", h.ResearchFromDashboard)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	api := r.Group("/api/v1")
	{
		api.POST("/signals/upload", h.UploadSignal)
		api.GET("/signals", h.ListSignals)
		api.GET("/signals/:id", h.GetSignal)
		api.POST("/signals/:id/verify", h.VerifySignal)
		api.POST("/signals/:id/research-public", h.ResearchPublic)
		api.GET("/signals/:id/audit", h.GetAuditTrail)
		api.GET("/stats", h.GetStats)
		api.GET("/provenance/tags", h.ProvenanceTags)
	}

	return r
}
