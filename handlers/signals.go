package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
	"github.com/rishabhrocktheparty-ai/Blackgpt/signals"
)

// dateLayouts are the ISO-8601 forms accepted for dates.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(field, value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s must be an ISO-8601 date, got %q", field, value)
}

type uploadRequest struct {
	ScriptName      string            `json:"scriptName"`
	DateFrom        string            `json:"dateFrom"`
	DateTo          string            `json:"dateTo"`
	GistText        string            `json:"gistText"`
	ProvenanceTags  []string          `json:"provenanceTags"`
	SourceType      models.SourceType `json:"sourceType"`
	ConfidenceScore *float64          `json:"confidenceScore"`
	UploaderID      string            `json:"uploaderId"`
}

func (r uploadRequest) toInput() (signals.CreateInput, error) {
	in := signals.CreateInput{
		ScriptName:      r.ScriptName,
		GistText:        r.GistText,
		ProvenanceTags:  r.ProvenanceTags,
		SourceType:      r.SourceType,
		ConfidenceScore: r.ConfidenceScore,
		UploaderID:      r.UploaderID,
	}
	var err error
	if r.DateFrom != "" {
		if in.DateFrom, err = parseDate("dateFrom", r.DateFrom); err != nil {
			return in, err
		}
	}
	if r.DateTo != "" {
		if in.DateTo, err = parseDate("dateTo", r.DateTo); err != nil {
			return in, err
		}
	}
	return in, nil
}

// UploadSignal handles POST /api/v1/signals/upload.
func (h *Handler) UploadSignal(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "upload", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.badRequest(c, "upload", err)
		return
	}

	signal, err := h.signals.CreateSignal(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, signal)
}

// GetSignal handles GET /api/v1/signals/:id.
func (h *Handler) GetSignal(c *gin.Context) {
	signal, err := h.signals.GetSignal(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, signal)
}

type listQuery struct {
	Status        string   `form:"status"`
	DateFrom      string   `form:"dateFrom"`
	DateTo        string   `form:"dateTo"`
	MinConfidence *float64 `form:"minConfidence"`
	MaxConfidence *float64 `form:"maxConfidence"`
	Page          int      `form:"page"`
	Limit         int      `form:"limit"`
}

func (q listQuery) toFilter() (signals.ListFilter, error) {
	f := signals.ListFilter{
		Status:        models.SignalStatus(strings.ToUpper(q.Status)),
		MinConfidence: q.MinConfidence,
		MaxConfidence: q.MaxConfidence,
		Page:          q.Page,
		Limit:         q.Limit,
	}
	if q.DateFrom != "" {
		t, err := parseDate("dateFrom", q.DateFrom)
		if err != nil {
			return f, err
		}
		f.CreatedFrom = &t
	}
	if q.DateTo != "" {
		t, err := parseDate("dateTo", q.DateTo)
		if err != nil {
			return f, err
		}
		f.CreatedTo = &t
	}
	return f, nil
}

// ListSignals handles GET /api/v1/signals.
func (h *Handler) ListSignals(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "list", err)
		return
	}
	f, err := q.toFilter()
	if err != nil {
		h.badRequest(c, "list", err)
		return
	}

	res, err := h.signals.ListSignals(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       res.Signals,
		"pagination": res.Pagination,
	})
}

type verifyRequest struct {
	ReviewerID string `json:"reviewerId"`
	Action     string `json:"action"`
	Notes      string `json:"notes"`
}

// VerifySignal handles POST /api/v1/signals/:id/verify.
func (h *Handler) VerifySignal(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "verify", err)
		return
	}

	signal, err := h.signals.VerifySignal(c.Request.Context(), signals.VerifyInput{
		SignalID:   c.Param("id"),
		ReviewerID: req.ReviewerID,
		Action:     signals.Action(req.Action),
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, signal)
}

// GetAuditTrail handles GET /api/v1/signals/:id/audit.
func (h *Handler) GetAuditTrail(c *gin.Context) {
	trail, err := h.signals.GetAuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, trail)
}

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.signals.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, stats)
}
