package signals

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/apperr"
	"github.com/rishabhrocktheparty-ai/Blackgpt/audit"
	"github.com/rishabhrocktheparty-ai/Blackgpt/events"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

type VerifyInput struct {
	SignalID   string `json:"-"`
	ReviewerID string `json:"reviewerId" validate:"required,max=64"`
	Action     Action `json:"action"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// VerifySignal applies a reviewer decision. REJECTED signals are terminal:
// any further decision fails with a conflict and writes nothing.
func (s *Service) VerifySignal(ctx context.Context, in VerifyInput) (*models.Signal, error) {
	const op = "signals.VerifySignal"

	in.Action = Action(strings.ToLower(strings.TrimSpace(string(in.Action))))
	if _, ok := reviewTransitions[in.Action]; !ok {
		return nil, apperr.InvalidAction(op, string(in.Action))
	}
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, apperr.Validation(op, "%s", fieldErrors(err))
	}

	current, err := s.findSignal(ctx, s.db, op, in.SignalID)
	if err != nil {
		return nil, err
	}
	t, _, terminal := nextReviewStatus(current.Status, in.Action)
	if terminal {
		return nil, apperr.Conflict(op, "signal %s is %s and cannot be reviewed again", in.SignalID, current.Status)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Signal{}).
			Where("id = ? AND status <> ?", in.SignalID, models.StatusRejected).
			Updates(map[string]any{
				"status":             t.to,
				"requires_attention": requiresAttention(t.to),
				"updated_at":         now,
			})
		if res.Error != nil {
			return apperr.Persistence(op, fmt.Errorf("update signal: %w", res.Error))
		}
		if res.RowsAffected == 0 {
			// rejected by a concurrent reviewer since we read it
			return apperr.Conflict(op, "signal %s was rejected concurrently", in.SignalID)
		}
		_, err := s.recorder.WithTx(tx).Append(ctx, audit.Entry{
			SignalID: in.SignalID,
			ActorID:  in.ReviewerID,
			Action:   t.audit,
			Notes:    in.Notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.findSignal(ctx, s.db, op, in.SignalID)
	if err != nil {
		return nil, err
	}
	s.metrics.Verified(t.metric)
	s.log.Info("Signal verified",
		"signal_id", in.SignalID, "action", in.Action, "reviewer", in.ReviewerID, "status", updated.Status)
	s.publish(ctx, events.Event{
		Type:       t.audit,
		SignalID:   in.SignalID,
		ActorID:    in.ReviewerID,
		Status:     updated.Status,
		Confidence: updated.ConfidenceScore,
	})
	return updated, nil
}
