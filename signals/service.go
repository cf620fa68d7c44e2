// Package signals owns the signal lifecycle: upload, review, public-source
// correlation and the audit entries each transition writes.
//
// Every state change and its audit entry commit in one transaction. Events
// are published only after commit and never affect the outcome.
package signals

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/audit"
	"github.com/rishabhrocktheparty-ai/Blackgpt/correlation"
	"github.com/rishabhrocktheparty-ai/Blackgpt/events"
	"github.com/rishabhrocktheparty-ai/Blackgpt/metrics"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
	"github.com/rishabhrocktheparty-ai/Blackgpt/provenance"
)

// Correlator runs one correlation pass for a signal.
type Correlator interface {
	Correlate(ctx context.Context, signal models.Signal) (*correlation.Outcome, error)
}

type Deps struct {
	Validator  *provenance.Validator
	Correlator Correlator
	Recorder   *audit.Recorder
	Publisher  events.Publisher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Clock      func() time.Time
	// StaleJobAfter is the age at which an IN_PROGRESS job counts as
	// abandoned. Zero means DefaultStaleJobAfter.
	StaleJobAfter time.Duration
}

const DefaultStaleJobAfter = 10 * time.Minute

type Service struct {
	db         *gorm.DB
	validate   *validator.Validate
	provenance *provenance.Validator
	correlator Correlator
	recorder   *audit.Recorder
	publisher  events.Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger
	now        func() time.Time
	staleAfter time.Duration
}

// NewService fills unset deps with working defaults. Without a Correlator
// every research request fails with correlation.ErrNoConnectors.
func NewService(db *gorm.DB, deps Deps) *Service {
	s := &Service{
		db:         db,
		validate:   newStructValidator(),
		provenance: deps.Validator,
		correlator: deps.Correlator,
		recorder:   deps.Recorder,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		now:        deps.Clock,
		staleAfter: deps.StaleJobAfter,
	}
	if s.staleAfter <= 0 {
		s.staleAfter = DefaultStaleJobAfter
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.provenance == nil {
		s.provenance = provenance.NewValidator()
	}
	if s.correlator == nil {
		s.correlator = correlation.NewAggregator(nil, s.log)
	}
	if s.recorder == nil {
		s.recorder = audit.NewRecorder(db, s.log)
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	s.recorder = s.recorder.WithClock(s.now)
	return s
}

// publish sends e after commit. Failures are logged only.
func (s *Service) publish(ctx context.Context, e events.Event) {
	e.At = s.now()
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.Warn("Failed to publish lifecycle event", "type", e.Type, "signal_id", e.SignalID, "error", err)
	}
}

// Ping checks that the store answers.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
