// Package handlers exposes the signal lifecycle over HTTP with gin.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhrocktheparty-ai/Blackgpt/apperr"
	"github.com/rishabhrocktheparty-ai/Blackgpt/metrics"
	"github.com/rishabhrocktheparty-ai/Blackgpt/signals"
)

type Handler struct {
	signals *signals.Service
	metrics *metrics.Metrics
	log     *slog.Logger
	// debug shows internal error details to clients
	debug bool
}

func New(svc *signals.Service, m *metrics.Metrics, log *slog.Logger, debug bool) *Handler {
	return &Handler{signals: svc, metrics: m, log: log, debug: debug}
}

func (h *Handler) ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// fail writes the error envelope. Server-side failures are logged here so
// handlers do not have to.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   string(apperr.KindOf(err)),
		"message": apperr.PublicMessage(err, h.debug),
	})
}

func (h *Handler) badRequest(c *gin.Context, op string, err error) {
	h.fail(c, apperr.Validation(op, "invalid request: %v", err))
}
