package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type researchRequest struct {
	InitiatedBy string `json:"initiatedBy"`
}

// ResearchPublic handles POST /api/v1/signals/:id/research-public. The
// request waits for every connector; a busy signal answers 409 and a failed
// run 502.
func (h *Handler) ResearchPublic(c *gin.Context) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "research", err)
		return
	}

	res, err := h.signals.ResearchPublicWeb(c.Request.Context(), c.Param("id"), req.InitiatedBy)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, res)
}
