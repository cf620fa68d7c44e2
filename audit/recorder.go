// Package audit appends and reads the immutable history of a signal.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/apperr"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

// Entry is what a caller supplies; the recorder stamps id and time.
type Entry struct {
	SignalID string
	ActorID  string
	Action   models.AuditAction
	Notes    string
}

// Recorder writes audit rows. It has no update or delete path.
type Recorder struct {
	db  *gorm.DB
	log *slog.Logger
	now func() time.Time
}

func NewRecorder(db *gorm.DB, log *slog.Logger) *Recorder {
	return &Recorder{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the timestamp source.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	cp := *r
	cp.now = now
	return &cp
}

// WithTx returns a recorder that writes through tx, so the entry commits or
// rolls back together with the caller's state change.
func (r *Recorder) WithTx(tx *gorm.DB) *Recorder {
	cp := *r
	cp.db = tx
	return &cp
}

func (r *Recorder) Append(ctx context.Context, e Entry) (*models.Audit, error) {
	if e.SignalID == "" || e.ActorID == "" || e.Action == "" {
		return nil, apperr.Validation("audit.Append", "signal id, actor id and action are required")
	}
	row := &models.Audit{
		SignalID:  e.SignalID,
		ActorID:   e.ActorID,
		Action:    e.Action,
		Notes:     e.Notes,
		Timestamp: r.now(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, apperr.Persistence("audit.Append", fmt.Errorf("insert audit for %s: %w", e.SignalID, err))
	}
	r.log.Debug("Audit appended", "signal_id", e.SignalID, "action", e.Action, "actor", e.ActorID)
	return row, nil
}

// Trail returns every entry for signalID, newest first.
func (r *Recorder) Trail(ctx context.Context, signalID string) ([]models.Audit, error) {
	return r.Recent(ctx, signalID, 0)
}

// Recent returns the n newest entries for signalID. n <= 0 means all.
func (r *Recorder) Recent(ctx context.Context, signalID string, n int) ([]models.Audit, error) {
	q := r.db.WithContext(ctx).
		Where("signal_id = ?", signalID).
		Order("timestamp DESC").
		Order("id DESC")
	if n > 0 {
		q = q.Limit(n)
	}
	rows := []models.Audit{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Persistence("audit.Trail", err)
	}
	return rows, nil
}

// Count returns how many entries exist for signalID.
func (r *Recorder) Count(ctx context.Context, signalID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Audit{}).Where("signal_id = ?", signalID).Count(&n).Error; err != nil {
		return 0, apperr.Persistence("audit.Count", err)
	}
	return n, nil
}
