package signals

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/apperr"
	"github.com/rishabhrocktheparty-ai/Blackgpt/audit"
	"github.com/rishabhrocktheparty-ai/Blackgpt/events"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

// CreateInput is an upload request. Tags and source type are checked by the
// provenance gate after the field rules pass.
type CreateInput struct {
	ScriptName      string            `json:"scriptName" validate:"required,max=200"`
	DateFrom        time.Time         `json:"dateFrom" validate:"required"`
	DateTo          time.Time         `json:"dateTo" validate:"required"`
	GistText        string            `json:"gistText" validate:"required,min=10,max=5000"`
	ProvenanceTags  []string          `json:"provenanceTags"`
	SourceType      models.SourceType `json:"sourceType" validate:"required"`
	ConfidenceScore *float64          `json:"confidenceScore" validate:"omitempty,gte=0,lte=1"`
	UploaderID      string            `json:"uploaderId" validate:"required,max=64"`
}

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors turns validator output into one readable sentence.
func fieldErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "gte", "lte":
			msgs = append(msgs, fe.Field()+" must be between 0 and 1")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// CreateSignal validates in, then writes the signal and its CREATED entry in
// one transaction. Nothing is written when validation fails.
func (s *Service) CreateSignal(ctx context.Context, in CreateInput) (*models.Signal, error) {
	const op = "signals.CreateSignal"

	in.ScriptName = strings.TrimSpace(in.ScriptName)
	in.GistText = strings.TrimSpace(in.GistText)
	if err := s.validate.StructCtx(ctx, in); err != nil {
		s.metrics.ValidationRejected()
		return nil, apperr.Validation(op, "%s", fieldErrors(err))
	}
	if in.DateFrom.After(in.DateTo) {
		s.metrics.ValidationRejected()
		return nil, apperr.Validation(op, "dateFrom must not be after dateTo")
	}

	check := s.provenance.Validate(in.ProvenanceTags, in.SourceType, in.GistText)
	if !check.IsValid {
		s.metrics.ValidationRejected()
		s.log.Warn("Signal creation blocked, invalid provenance",
			"uploader", in.UploaderID, "reason", check.Reason, "pattern", check.Pattern)
		return nil, apperr.Validation(op, "%s", check.Reason)
	}

	now := s.now()
	status := initialStatus(check.Flagged)
	signal := &models.Signal{
		ID:                uuid.NewString(),
		ScriptName:        in.ScriptName,
		DateFrom:          in.DateFrom.UTC(),
		DateTo:            in.DateTo.UTC(),
		GistText:          in.GistText,
		ProvenanceTags:    in.ProvenanceTags,
		SourceType:        in.SourceType,
		Status:            status,
		RequiresAttention: requiresAttention(status),
		CreatedBy:         in.UploaderID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.ConfidenceScore != nil {
		signal.ConfidenceScore = *in.ConfidenceScore
	}

	var notes string
	if check.Flagged {
		notes = "Signal flagged for review: " + check.Reason
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(signal).Error; err != nil {
			return apperr.Persistence(op, fmt.Errorf("insert signal: %w", err))
		}
		_, err := s.recorder.WithTx(tx).Append(ctx, audit.Entry{
			SignalID: signal.ID,
			ActorID:  in.UploaderID,
			Action:   models.AuditCreated,
			Notes:    notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SignalCreated(string(status))
	s.log.Info("Signal created", "signal_id", signal.ID, "status", status, "flagged", check.Flagged)
	s.publish(ctx, events.Event{
		Type:       models.AuditCreated,
		SignalID:   signal.ID,
		ActorID:    in.UploaderID,
		Status:     status,
		Confidence: signal.ConfidenceScore,
	})
	return signal, nil
}
