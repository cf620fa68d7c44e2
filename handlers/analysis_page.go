package handlers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/rishabhrocktheparty-ai/Blackgpt/apperr"
)

// ResearchFromDashboard handles the dashboard's "Research" button and sends
// the reviewer back to the queue with the outcome.
func (h *Handler) ResearchFromDashboard(c *gin.Context) {
	actor := c.PostForm("initiatedBy")
	if actor == "" {
		actor = "dashboard"
	}

	res, err := h.signals.ResearchPublicWeb(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			h.renderError(c, err)
			return
		}
		h.log.Warn("Dashboard research failed", "signal_id", c.Param("id"), "error", err)
		c.Redirect(http.StatusSeeOther, "/dashboard?err="+url.QueryEscape(apperr.PublicMessage(err, h.debug)))
		return
	}

	msg := fmt.Sprintf("%s correlated at %s (%s)", res.Signal.ScriptName, formatPercent(res.Summary.Confidence), res.Signal.Status)
	c.Redirect(http.StatusSeeOther, "/dashboard?msg="+url.QueryEscape(msg))
}

func (h *Handler) renderError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Dashboard request failed", "path", c.FullPath(), "error", err)
	}
	c.HTML(status, "error.html", gin.H{"error": apperr.PublicMessage(err, h.debug)})
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
