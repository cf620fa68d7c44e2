// Package correlation corroborates a signal against every configured public
// source at once and condenses the findings into one confidence score, a gist
// and a contradiction assessment.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rishabhrocktheparty-ai/Blackgpt/connectors"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
	"github.com/rishabhrocktheparty-ai/Blackgpt/summarizer"
)

// ContradictionThreshold is the contradiction confidence above which a
// correlated signal goes back to human review instead of CORRELATED.
const ContradictionThreshold = 0.40

const (
	defaultConnectorTimeout = 15 * time.Second
	noCorrelationGist       = "No significant correlations found in public sources. This may indicate a unique or emerging signal."
)

// ErrNoConnectors means there is nothing to correlate against.
var ErrNoConnectors = errors.New("no public source connectors configured")

// Connector is one public source as seen by the aggregator. Query must not
// fail; *connectors.Connector satisfies it.
type Connector interface {
	Name() string
	Query(ctx context.Context, keywords []string) connectors.Result
}

type Contradiction struct {
	Flag           bool    `json:"flag"`
	Confidence     float64 `json:"confidence"`
	Note           string  `json:"note,omitempty"`
	RequiresReview bool    `json:"requiresReview"`
}

// Outcome is the aggregate of one correlation run. Sources is in connector
// order and always has one entry per connector.
type Outcome struct {
	Keywords       []string            `json:"keywords"`
	ResultGist     string              `json:"resultGist"`
	Confidence     float64             `json:"confidence"`
	SourcesQueried []string            `json:"sourcesQueried"`
	Sources        []connectors.Result `json:"sources"`
	Summary        *summarizer.Summary `json:"summary,omitempty"`
	Contradiction  Contradiction       `json:"contradiction"`
}

type Aggregator struct {
	connectors []Connector
	summarizer summarizer.Summarizer
	timeout    time.Duration
	log        *slog.Logger
}

type Option func(*Aggregator)

// WithSummarizer enables the LLM refinement step. A nil value leaves it off.
func WithSummarizer(s summarizer.Summarizer) Option {
	return func(a *Aggregator) { a.summarizer = s }
}

// WithConnectorTimeout bounds how long the aggregator waits for any single
// connector, independent of the connector's own HTTP timeout.
func WithConnectorTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func NewAggregator(conns []Connector, log *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{connectors: conns, timeout: defaultConnectorTimeout, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sources lists the connector names in query order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.connectors))
	for i, c := range a.connectors {
		names[i] = c.Name()
	}
	return names
}

func (a *Aggregator) Correlate(ctx context.Context, signal models.Signal) (*Outcome, error) {
	if len(a.connectors) == 0 {
		return nil, ErrNoConnectors
	}

	ctx, span := otel.Tracer("blackgpt/correlation").Start(ctx, "correlation.correlate",
		trace.WithAttributes(attribute.String("signal.id", signal.ID), attribute.Int("correlation.connectors", len(a.connectors))))
	defer span.End()

	keywords := ExtractKeywords(signal.GistText)
	span.SetAttributes(attribute.StringSlice("correlation.keywords", keywords))
	a.log.Info("Starting correlation", "signal_id", signal.ID, "keywords", keywords)

	results := a.fanOut(ctx, keywords)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("correlation aborted: %w", err)
	}

	out := &Outcome{
		Keywords:       keywords,
		Sources:        results,
		SourcesQueried: make([]string, len(results)),
	}
	var total float64
	for i, r := range results {
		out.SourcesQueried[i] = r.Source
		total += r.Confidence
	}
	out.Confidence = total / float64(len(results))
	out.ResultGist = GenerateGist(results)

	if a.summarizer != nil {
		a.refine(ctx, signal, out)
	}
	out.Contradiction.RequiresReview = out.Contradiction.Confidence > ContradictionThreshold

	span.SetAttributes(
		attribute.Float64("correlation.confidence", out.Confidence),
		attribute.Bool("correlation.contradiction", out.Contradiction.RequiresReview),
	)
	a.log.Info("Correlation complete",
		"signal_id", signal.ID,
		"confidence", out.Confidence,
		"sources", out.SourcesQueried,
		"contradiction", out.Contradiction.RequiresReview)
	return out, nil
}

// fanOut queries every connector concurrently and waits for all of them.
// Goroutines never return an error, so one failure cannot cancel the rest.
func (a *Aggregator) fanOut(ctx context.Context, keywords []string) []connectors.Result {
	results := make([]connectors.Result, len(a.connectors))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range a.connectors {
		g.Go(func() error {
			results[i] = a.queryOne(gctx, c, keywords)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// queryOne runs c.Query under its own deadline. If the connector ignores the
// deadline its goroutine is abandoned and a timeout result is recorded.
func (a *Aggregator) queryOne(ctx context.Context, c Connector, keywords []string) connectors.Result {
	name := c.Name()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ch := make(chan connectors.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("Connector panicked", "source", name, "panic", r)
				ch <- failedResult(name, fmt.Errorf("panic: %v", r))
			}
		}()
		ch <- c.Query(ctx, keywords)
	}()

	select {
	case r := <-ch:
		if r.Source == "" {
			r.Source = name
		}
		if r.Items == nil {
			r.Items = []connectors.Item{}
		}
		return r
	case <-ctx.Done():
		a.log.Warn("Connector timed out", "source", name, "timeout", a.timeout)
		return failedResult(name, ctx.Err())
	}
}

func failedResult(name string, err error) connectors.Result {
	return connectors.Result{Source: name, Items: []connectors.Item{}, Mode: connectors.ModeLive, Error: err.Error()}
}

// refine asks the summarizer for a better gist and a contradiction check.
// Failures keep the mechanical gist and a no-contradiction result.
func (a *Aggregator) refine(ctx context.Context, signal models.Signal, out *Outcome) {
	evidence := collectEvidence(out.Sources)

	summary, err := a.summarizer.Summarize(ctx, summarizer.SummaryInput{
		ScriptName:   signal.ScriptName,
		OriginalGist: signal.GistText,
		Evidence:     evidence,
	})
	if err != nil {
		a.log.Warn("Summarizer failed, keeping mechanical gist", "signal_id", signal.ID, "error", err)
	} else if summary != nil {
		out.Summary = summary
		if strings.TrimSpace(summary.Gist) != "" {
			out.ResultGist = summary.Gist
		}
	}

	assessment, err := a.summarizer.DetectContradiction(ctx, summarizer.ContradictionInput{
		Gist:     signal.GistText,
		Evidence: evidence,
	})
	if err != nil {
		a.log.Warn("Contradiction detection failed", "signal_id", signal.ID, "error", err)
		return
	}
	if assessment != nil {
		out.Contradiction = Contradiction{
			Flag:       assessment.HasContradiction,
			Confidence: assessment.Confidence,
			Note:       assessment.CounterEvidence,
		}
	}
}

func collectEvidence(results []connectors.Result) []summarizer.Evidence {
	var ev []summarizer.Evidence
	for _, r := range results {
		for _, item := range r.Items {
			ev = append(ev, summarizer.Evidence{Source: r.Source, Title: item.Title, Content: item.Content, URL: item.URL})
		}
	}
	return ev
}

// GenerateGist writes one line per source that found something.
func GenerateGist(results []connectors.Result) string {
	var findings []string
	for _, r := range results {
		if len(r.Items) == 0 {
			continue
		}
		findings = append(findings, fmt.Sprintf("%s: Found %d related items (confidence: %.0f%%)", r.Source, len(r.Items), r.Confidence*100))
	}
	if len(findings) == 0 {
		return noCorrelationGist
	}
	strength := "moderate"
	if len(findings) > 1 {
		strength = "high"
	}
	return fmt.Sprintf("Correlation analysis:\n%s\n\nOriginal signal relevance appears %s based on public data.", strings.Join(findings, "\n"), strength)
}
