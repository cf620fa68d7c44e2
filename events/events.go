// Package events publishes signal lifecycle changes after they commit.
// Delivery is best effort: subscribers may miss events, the database stays
// the source of truth.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

// Event mirrors the audit entry written in the same transaction.
type Event struct {
	Type       models.AuditAction  `json:"type"`
	SignalID   string              `json:"signalId"`
	ActorID    string              `json:"actorId"`
	Status     models.SignalStatus `json:"status"`
	Confidence float64             `json:"confidence"`
	JobID      string              `json:"jobId,omitempty"`
	At         time.Time           `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// NATS publishes each event as JSON on "<prefix>.<type>", e.g.
// blackgpt.signals.verified.
type NATS struct {
	conn   *nats.Conn
	prefix string
	owned  bool
	log    *slog.Logger
}

// New builds the publisher selected by cfg.Type.
func New(cfg config.EventsConfig, log *slog.Logger) (Publisher, error) {
	switch cfg.Type {
	case "", "none":
		return Noop{}, nil
	case "nats":
		p, err := ConnectNATS(cfg.NATSURL, cfg.SubjectPrefix, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events type %q", cfg.Type)
	}
}

func ConnectNATS(url, prefix string, log *slog.Logger) (*NATS, error) {
	log.Info("Connecting to NATS", "url", url)
	conn, err := nats.Connect(url, nats.Name("blackgpt"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	p := NewNATS(conn, prefix, log)
	p.owned = true
	return p, nil
}

// NewNATS wraps an existing connection. Close will not drain it.
func NewNATS(conn *nats.Conn, prefix string, log *slog.Logger) *NATS {
	if prefix == "" {
		prefix = "blackgpt.signals"
	}
	return &NATS{conn: conn, prefix: strings.TrimSuffix(prefix, "."), log: log}
}

func (p *NATS) Subject(t models.AuditAction) string {
	return p.prefix + "." + strings.ToLower(string(t))
}

func (p *NATS) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.Subject(e.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug("Event published", "subject", subject, "signal_id", e.SignalID)
	return nil
}

func (p *NATS) Close() error {
	if !p.owned {
		return nil
	}
	return p.conn.Drain()
}
