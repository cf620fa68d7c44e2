package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/apperr"
	"github.com/rishabhrocktheparty-ai/Blackgpt/audit"
	"github.com/rishabhrocktheparty-ai/Blackgpt/connectors"
	"github.com/rishabhrocktheparty-ai/Blackgpt/correlation"
	"github.com/rishabhrocktheparty-ai/Blackgpt/database"
	"github.com/rishabhrocktheparty-ai/Blackgpt/events"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

// ResearchSummary is the condensed view of one correlation run.
type ResearchSummary struct {
	Gist       string   `json:"gist"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
	TopSignals []string `json:"topSignals,omitempty"`
	Model      string   `json:"model,omitempty"`
}

type ResearchResult struct {
	Job           *models.CorrelationJob    `json:"job"`
	Signal        *models.Signal            `json:"signal"`
	Summary       ResearchSummary           `json:"summary"`
	Contradiction correlation.Contradiction `json:"contradiction"`
	Sources       []connectors.Result       `json:"sources"`
}

var errRejectedDuringRun = errors.New("signal was rejected while correlation was running")

// ResearchPublicWeb correlates a signal against public sources. Only one job
// per signal may be IN_PROGRESS; a second request gets a conflict. The
// connectors run outside any transaction. On failure the job is marked
// FAILED and the signal is left as it was.
func (s *Service) ResearchPublicWeb(ctx context.Context, signalID, initiatedBy string) (*ResearchResult, error) {
	const op = "signals.ResearchPublicWeb"

	ctx, span := otel.Tracer("blackgpt/signals").Start(ctx, "signals.research_public_web",
		trace.WithAttributes(attribute.String("signal.id", signalID), attribute.String("signal.initiated_by", initiatedBy)))
	defer span.End()

	if initiatedBy == "" {
		return nil, apperr.Validation(op, "initiatedBy is required")
	}
	signal, err := s.findSignal(ctx, s.db, op, signalID)
	if err != nil {
		return nil, err
	}
	if signal.Status.Terminal() {
		return nil, apperr.Conflict(op, "signal %s is %s and cannot be correlated", signalID, signal.Status)
	}

	job, err := s.startJob(ctx, op, signalID, initiatedBy)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			s.metrics.CorrelationFinished("conflict", 0)
		}
		return nil, err
	}
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.failJob(ctx, job, fmt.Errorf("panic: %v", r))
			s.metrics.CorrelationFinished("failed", time.Since(started))
			panic(r)
		}
	}()

	outcome, err := s.correlator.Correlate(ctx, *signal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.failJob(ctx, job, err)
		s.metrics.CorrelationFinished("failed", time.Since(started))
		return nil, apperr.Upstream(op, fmt.Errorf("correlation job %s failed: %w", job.ID, err))
	}

	updated, err := s.completeJob(ctx, op, job, initiatedBy, outcome)
	if errors.Is(err, errRejectedDuringRun) {
		s.failJob(ctx, job, err)
		s.metrics.CorrelationFinished("failed", time.Since(started))
		return nil, apperr.Conflict(op, "signal %s was rejected while correlation was running", signalID)
	}
	if err != nil {
		s.failJob(ctx, job, err)
		s.metrics.CorrelationFinished("failed", time.Since(started))
		return nil, err
	}
	s.metrics.CorrelationFinished("completed", time.Since(started))

	var finished models.CorrelationJob
	if err := s.db.WithContext(ctx).Where("id = ?", job.ID).First(&finished).Error; err != nil {
		return nil, apperr.Persistence(op, err)
	}

	s.log.Info("Correlation completed",
		"signal_id", signalID, "job_id", job.ID,
		"confidence", outcome.Confidence, "status", updated.Status)
	s.publish(ctx, events.Event{
		Type:       models.AuditCorrelated,
		SignalID:   signalID,
		ActorID:    initiatedBy,
		Status:     updated.Status,
		Confidence: updated.ConfidenceScore,
		JobID:      job.ID,
	})

	summary := ResearchSummary{
		Gist:       outcome.ResultGist,
		Confidence: outcome.Confidence,
		Keywords:   outcome.Keywords,
	}
	if outcome.Summary != nil {
		summary.TopSignals = outcome.Summary.TopSignals
		summary.Model = outcome.Summary.Model
	}
	return &ResearchResult{
		Job:           &finished,
		Signal:        updated,
		Summary:       summary,
		Contradiction: outcome.Contradiction,
		Sources:       outcome.Sources,
	}, nil
}

// startJob inserts an IN_PROGRESS job unless one already exists. The
// in-transaction check catches the common case; the partial unique index
// catches two transactions racing past it.
func (s *Service) startJob(ctx context.Context, op, signalID, initiatedBy string) (*models.CorrelationJob, error) {
	job := &models.CorrelationJob{
		ID:             uuid.NewString(),
		SignalID:       signalID,
		Status:         models.JobInProgress,
		InitiatedBy:    initiatedBy,
		StartedAt:      s.now(),
		SourcesQueried: []string{},
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired, err := s.expireStale(tx, signalID)
		if err != nil {
			return apperr.Persistence(op, err)
		}
		if expired > 0 {
			s.log.Warn("Expired abandoned correlation job", "signal_id", signalID, "stale_after", s.staleAfter)
		}

		var inFlight int64
		if err := tx.Model(&models.CorrelationJob{}).
			Where("signal_id = ? AND status = ?", signalID, models.JobInProgress).
			Count(&inFlight).Error; err != nil {
			return apperr.Persistence(op, err)
		}
		if inFlight > 0 {
			return apperr.Conflict(op, "a correlation job is already in progress for signal %s", signalID)
		}
		if err := tx.Create(job).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict(op, "a correlation job is already in progress for signal %s", signalID)
			}
			return apperr.Persistence(op, fmt.Errorf("insert correlation job: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Correlation job started", "signal_id", signalID, "job_id", job.ID, "initiated_by", initiatedBy)
	return job, nil
}

// ExpireStaleJobs marks every IN_PROGRESS job older than the stale threshold
// as FAILED. serve runs it at startup to clear jobs a previous process left
// behind.
func (s *Service) ExpireStaleJobs(ctx context.Context) (int64, error) {
	n, err := s.expireStale(s.db.WithContext(ctx), "")
	if err != nil {
		return 0, apperr.Persistence("signals.ExpireStaleJobs", err)
	}
	if n > 0 {
		s.log.Warn("Expired abandoned correlation jobs", "count", n, "stale_after", s.staleAfter)
	}
	return n, nil
}

// expireStale fails abandoned jobs, limited to signalID when it is set.
func (s *Service) expireStale(db *gorm.DB, signalID string) (int64, error) {
	now := s.now()
	q := db.Model(&models.CorrelationJob{}).
		Where("status = ? AND started_at < ?", models.JobInProgress, now.Add(-s.staleAfter))
	if signalID != "" {
		q = q.Where("signal_id = ?", signalID)
	}
	res := q.Updates(map[string]any{
		"status":        models.JobFailed,
		"finished_at":   now,
		"error_message": fmt.Sprintf("abandoned: no result after %s", s.staleAfter),
	})
	return res.RowsAffected, res.Error
}

// completeJob records the outcome, updates the signal and writes the
// CORRELATED entry in one transaction.
func (s *Service) completeJob(ctx context.Context, op string, job *models.CorrelationJob, actor string, out *correlation.Outcome) (*models.Signal, error) {
	raw, err := json.Marshal(out.Sources)
	if err != nil {
		return nil, fmt.Errorf("encode raw results: %w", err)
	}
	now := s.now()

	var updated *models.Signal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.findSignal(ctx, tx, op, job.SignalID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return errRejectedDuringRun
		}

		res := tx.Model(&models.CorrelationJob{}).
			Where("id = ? AND status = ?", job.ID, models.JobInProgress).
			Updates(map[string]any{
				"status":                 models.JobCompleted,
				"finished_at":            now,
				"result_gist":            out.ResultGist,
				"correlation_confidence": out.Confidence,
				"sources_queried":        datatypes.JSONSlice[string](out.SourcesQueried),
				"raw_results":            datatypes.JSON(raw),
			})
		if res.Error != nil {
			return apperr.Persistence(op, fmt.Errorf("complete job: %w", res.Error))
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(op, "correlation job %s is no longer in progress", job.ID)
		}

		review := out.Contradiction.RequiresReview
		status := correlatedStatus(review)
		confidence := max(current.ConfidenceScore, out.Confidence)
		note := ""
		if review {
			note = out.Contradiction.Note
		}
		if err := tx.Model(&models.Signal{}).Where("id = ?", current.ID).Updates(map[string]any{
			"status":             status,
			"confidence_score":   confidence,
			"requires_attention": requiresAttention(status),
			"contradiction_flag": review,
			"contradiction_note": note,
			"updated_at":         now,
		}).Error; err != nil {
			return apperr.Persistence(op, fmt.Errorf("update signal: %w", err))
		}

		if _, err := s.recorder.WithTx(tx).Append(ctx, audit.Entry{
			SignalID: current.ID,
			ActorID:  actor,
			Action:   models.AuditCorrelated,
			Notes:    correlationNotes(out),
		}); err != nil {
			return err
		}

		current.Status = status
		current.ConfidenceScore = confidence
		current.RequiresAttention = requiresAttention(status)
		current.ContradictionFlag = review
		current.ContradictionNote = note
		current.UpdatedAt = now
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// failJob records err on the job. It runs detached from ctx so a cancelled
// request still leaves the job FAILED instead of IN_PROGRESS.
func (s *Service) failJob(ctx context.Context, job *models.CorrelationJob, cause error) {
	ctx = context.WithoutCancel(ctx)
	err := s.db.WithContext(ctx).Model(&models.CorrelationJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobInProgress).
		Updates(map[string]any{
			"status":        models.JobFailed,
			"finished_at":   s.now(),
			"error_message": cause.Error(),
		}).Error
	if err != nil {
		s.log.Error("Failed to mark correlation job as failed", "job_id", job.ID, "error", err)
		return
	}
	s.log.Error("Correlation failed", "signal_id", job.SignalID, "job_id", job.ID, "error", cause)
}

func correlationNotes(out *correlation.Outcome) string {
	notes := fmt.Sprintf("Public web correlation completed. Confidence: %.1f%%", out.Confidence*100)
	if out.Contradiction.RequiresReview {
		notes += fmt.Sprintf(". Contradiction (%.0f%%): %s", out.Contradiction.Confidence*100, out.Contradiction.Note)
	}
	return notes
}
