package signals

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/apperr"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps the row offset inside int32 on every driver.
	MaxPage = math.MaxInt32 / MaxPageSize

	recentAudits = 10
	recentJobs   = 5
)

// ListFilter narrows ListSignals. Zero values mean "no filter".
type ListFilter struct {
	Status        models.SignalStatus
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	MinConfidence *float64
	MaxConfidence *float64
	Page          int
	Limit         int
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type ListResult struct {
	Signals    []models.Signal `json:"signals"`
	Pagination Pagination      `json:"pagination"`
}

// Stats summarizes the review queue.
type Stats struct {
	Total             int64                         `json:"total"`
	ByStatus          map[models.SignalStatus]int64 `json:"byStatus"`
	RequiresAttention int64                         `json:"requiresAttention"`
	Contradictions    int64                         `json:"contradictions"`
	AvgConfidence     float64                       `json:"avgConfidence"`
	JobsInProgress    int64                         `json:"jobsInProgress"`
	JobsFailed        int64                         `json:"jobsFailed"`
}

func (s *Service) findSignal(ctx context.Context, db *gorm.DB, op, id string) (*models.Signal, error) {
	var signal models.Signal
	err := db.WithContext(ctx).Where("id = ?", id).First(&signal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "signal", id)
	}
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return &signal, nil
}

// GetSignal returns the signal with its newest audit entries and jobs.
func (s *Service) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	const op = "signals.GetSignal"
	var signal models.Signal
	err := s.db.WithContext(ctx).
		Preload("Audits", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC").Order("id DESC").Limit(recentAudits)
		}).
		Preload("CorrelationJobs", func(db *gorm.DB) *gorm.DB {
			return db.Order("started_at DESC").Limit(recentJobs)
		}).
		Where("id = ?", id).
		First(&signal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "signal", id)
	}
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if signal.AuditCount, err = s.recorder.Count(ctx, id); err != nil {
		return nil, err
	}
	return &signal, nil
}

// normalize applies paging defaults and clamps oversized pages.
func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

func (f ListFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.CreatedFrom != nil {
		db = db.Where("created_at >= ?", f.CreatedFrom.UTC())
	}
	if f.CreatedTo != nil {
		db = db.Where("created_at <= ?", f.CreatedTo.UTC())
	}
	if f.MinConfidence != nil {
		db = db.Where("confidence_score >= ?", *f.MinConfidence)
	}
	if f.MaxConfidence != nil {
		db = db.Where("confidence_score <= ?", *f.MaxConfidence)
	}
	return db
}

func (s *Service) ListSignals(ctx context.Context, f ListFilter) (*ListResult, error) {
	const op = "signals.ListSignals"
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation(op, "unknown status %q", f.Status)
	}
	if f.MinConfidence != nil && f.MaxConfidence != nil && *f.MinConfidence > *f.MaxConfidence {
		return nil, apperr.Validation(op, "minConfidence must not exceed maxConfidence")
	}
	f.normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Signal{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, apperr.Persistence(op, err)
	}

	signals := []models.Signal{}
	err := s.db.WithContext(ctx).
		Scopes(f.scope).
		Order("created_at DESC").
		Order("id DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&signals).Error
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	return &ListResult{
		Signals: signals,
		Pagination: Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(f.Limit))),
		},
	}, nil
}

// GetAuditTrail returns the full history of a signal, newest first.
func (s *Service) GetAuditTrail(ctx context.Context, id string) ([]models.Audit, error) {
	if _, err := s.findSignal(ctx, s.db, "signals.GetAuditTrail", id); err != nil {
		return nil, err
	}
	return s.recorder.Trail(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	const op = "signals.Stats"
	db := s.db.WithContext(ctx)
	stats := &Stats{ByStatus: make(map[models.SignalStatus]int64, len(models.Statuses))}
	for _, st := range models.Statuses {
		stats.ByStatus[st] = 0
	}

	var rows []struct {
		Status models.SignalStatus
		Count  int64
	}
	if err := db.Model(&models.Signal{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, apperr.Persistence(op, err)
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}

	if err := db.Model(&models.Signal{}).Where("requires_attention = ?", true).Count(&stats.RequiresAttention).Error; err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if err := db.Model(&models.Signal{}).Where("contradiction_flag = ?", true).Count(&stats.Contradictions).Error; err != nil {
		return nil, apperr.Persistence(op, err)
	}

	var avg sql.NullFloat64
	if err := db.Model(&models.Signal{}).Select("AVG(confidence_score)").Row().Scan(&avg); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	stats.AvgConfidence = avg.Float64

	if err := db.Model(&models.CorrelationJob{}).Where("status = ?", models.JobInProgress).Count(&stats.JobsInProgress).Error; err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if err := db.Model(&models.CorrelationJob{}).Where("status = ?", models.JobFailed).Count(&stats.JobsFailed).Error; err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return stats, nil
}
