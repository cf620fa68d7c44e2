package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rishabhrocktheparty-ai/Blackgpt/provenance"
)

// Health handles GET /health. It reports degraded when the store is down.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.signals.Ping(ctx); err != nil {
		h.log.Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}

// ProvenanceTags handles GET /api/v1/provenance/tags.
func (h *Handler) ProvenanceTags(c *gin.Context) {
	h.ok(c, http.StatusOK, gin.H{
		"tags":        provenance.AllowedTags(),
		"sourceTypes": provenance.AllowedSourceTypes(),
	})
}
