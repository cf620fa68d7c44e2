package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
	"github.com/rishabhrocktheparty-ai/Blackgpt/signals"
)

//go:embed templates/*.html
var templateFS embed.FS

const dashboardLimit = 50

// Templates parses the embedded review dashboard pages.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"percent": formatPercent,
		"lower":   func(s models.SignalStatus) string { return strings.ToLower(string(s)) },
	}).ParseFS(templateFS, "templates/*.html"))
}

type DashboardData struct {
	Status   string
	Statuses []models.SignalStatus
	Signals  []models.Signal
	Total    int64
	Stats    *signals.Stats
	Message  string
	Error    string
}

// Dashboard renders the review queue, newest first, optionally filtered by
// status.
func (h *Handler) Dashboard(c *gin.Context) {
	status := strings.ToUpper(c.Query("status"))
	data := DashboardData{
		Status:   status,
		Statuses: models.Statuses,
		Message:  c.Query("msg"),
		Error:    c.Query("err"),
	}

	list, err := h.signals.ListSignals(c.Request.Context(), signals.ListFilter{
		Status: models.SignalStatus(status),
		Limit:  dashboardLimit,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	data.Signals = list.Signals
	data.Total = list.Pagination.Total

	stats, err := h.signals.Stats(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	data.Stats = stats

	c.HTML(http.StatusOK, "dashboard.html", data)
}
